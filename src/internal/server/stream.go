// FILE: src/internal/server/stream.go
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"guardpost/src/internal/core"
)

// handleStream serves one viewer's live log feed as Server-Sent Events.
// The session subscribes to the hub, emits a synthetic connected entry,
// then relays broadcast entries; idle gaps are bridged with keepalive
// comment lines so intermediaries don't reap the connection. Closing one
// session has no effect on other viewers or on producers.
func (s *Server) handleStream(ctx *fasthttp.RequestCtx) {
	remoteAddr := ctx.RemoteAddr().String()

	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	sub := s.dash.Hub.Subscribe()
	if sub == nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		return
	}

	keepalive := time.Duration(s.config.Server.KeepaliveIntervalMS) * time.Millisecond
	if keepalive <= 0 {
		keepalive = time.Second
	}

	streamFunc := func(w *bufio.Writer) {
		connectCount := s.activeClients.Add(1)
		s.logger.Debug("msg", "Stream client connected",
			"component", "server",
			"remote_addr", remoteAddr,
			"active_clients", connectCount)

		s.wg.Add(1)
		defer func() {
			s.dash.Hub.Unsubscribe(sub)
			disconnectCount := s.activeClients.Add(-1)
			s.logger.Debug("msg", "Stream client disconnected",
				"component", "server",
				"remote_addr", remoteAddr,
				"dropped_entries", sub.Dropped(),
				"active_clients", disconnectCount)
			s.wg.Done()
		}()

		connected := core.LogEntry{
			Time:    time.Now().Format("15:04:05"),
			Level:   core.LevelInfo,
			Source:  "dashboard",
			Message: "Connected to log stream",
		}
		if err := writeEvent(w, connected); err != nil {
			return
		}

		// Keepalives fire only after a fully idle interval; every
		// delivered entry pushes the deadline out.
		idle := time.NewTimer(keepalive)
		defer idle.Stop()

		for {
			select {
			case entry, ok := <-sub.Entries():
				if !ok {
					// Hub shut down.
					return
				}
				if err := writeEvent(w, entry); err != nil {
					return
				}
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(keepalive)

			case <-idle.C:
				// No payload; holds idle connections open.
				fmt.Fprint(w, ": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
				idle.Reset(keepalive)

			case <-s.done:
				return
			}
		}
	}

	ctx.SetBodyStreamWriter(streamFunc)
}

// writeEvent emits one entry as an SSE data frame and flushes it to the
// client. A write or flush error means the client is gone.
func writeEvent(w *bufio.Writer, entry core.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
