package server

import (
	"net"
	"time"

	"github.com/LuisPadre25/wu-cli/internal/httpx"
	"github.com/LuisPadre25/wu-cli/internal/ws"
)

// Stream cadence.
const (
	pollInterval = 100 * time.Millisecond
	pingInterval = 30 * time.Second
)

// connectedEvent is the greeting every stream sends on open.
const connectedEvent = `{"type":"connected"}`

// serveSSE streams change events as Server-Sent Events until the client
// disconnects or shutdown begins.
func (s *Server) serveSSE(conn net.Conn) {
	header := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/event-stream\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Connection: keep-alive\r\n" +
		"Access-Control-Allow-Origin: *\r\n" +
		"\r\n"
	if writeAll(conn, []byte(header)) != nil {
		return
	}
	if writeAll(conn, []byte("data: "+connectedEvent+"\n\n")) != nil {
		return
	}

	s.trackClient(1)
	defer s.trackClient(-1)

	seen := s.hub.Counter()
	lastPing := time.Now()

	for !s.stopping.Load() {
		time.Sleep(pollInterval)

		if c := s.hub.Counter(); c != seen {
			seen = c
			event := s.hub.Latest()
			if event == nil {
				continue
			}
			if writeAll(conn, append(append([]byte("data: "), event...), '\n', '\n')) != nil {
				return
			}
			s.countReload()
		}

		if time.Since(lastPing) >= pingInterval {
			lastPing = time.Now()
			if writeAll(conn, []byte(": ping\n\n")) != nil {
				return
			}
		}
	}
}

// serveWS upgrades the connection and streams change events as text
// frames. Returns false when the upgrade headers fail validation (a 400
// was written and the connection stays usable).
func (s *Server) serveWS(conn net.Conn, req *httpx.Request) bool {
	upgrade := ws.Upgrade{
		Upgrade:    req.HeaderValue("Upgrade"),
		Connection: req.HeaderValue("Connection"),
		Version:    req.HeaderValue("Sec-WebSocket-Version"),
		Key:        req.HeaderValue("Sec-WebSocket-Key"),
	}
	if err := upgrade.Check(); err != nil {
		s.logger.Warn("websocket upgrade rejected", "error", err)
		s.writeResponse(conn, response{status: 400, contentType: "text/plain; charset=utf-8", body: []byte(err.Error() + "\n")})
		return false
	}

	accept := ws.AcceptKey(upgrade.Key)
	header := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n" +
		"\r\n"
	if writeAll(conn, []byte(header)) != nil {
		return true
	}

	s.trackClient(1)
	defer s.trackClient(-1)

	if writeAll(conn, ws.TextFrame([]byte(connectedEvent))) != nil {
		return true
	}

	seen := s.hub.Counter()
	lastPing := time.Now()
	var pending []byte
	readBuf := make([]byte, 4096)

	for !s.stopping.Load() {
		// The read deadline doubles as the poll interval: inbound
		// frames interleave with outbound pushes without a second
		// goroutine.
		conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := conn.Read(readBuf)
		if n > 0 {
			pending = append(pending, readBuf[:n]...)
			closed, perr := s.consumeClientFrames(conn, &pending)
			if perr != nil || closed {
				return true
			}
		}
		if err != nil && !isTimeout(err) {
			return true
		}

		if c := s.hub.Counter(); c != seen {
			seen = c
			event := s.hub.Latest()
			if event != nil {
				if writeAll(conn, ws.TextFrame(event)) != nil {
					return true
				}
				s.countReload()
			}
		}

		if time.Since(lastPing) >= pingInterval {
			lastPing = time.Now()
			if writeAll(conn, ws.PingFrame(nil)) != nil {
				return true
			}
		}
	}

	// Shutdown: say goodbye before dropping the stream.
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	writeAll(conn, ws.CloseFrame(ws.CloseGoingAway))
	return true
}

// consumeClientFrames parses buffered inbound frames: pings get pongs,
// close gets a close reply, everything else is ignored.
func (s *Server) consumeClientFrames(conn net.Conn, pending *[]byte) (closed bool, err error) {
	for {
		frame, n, perr := ws.ParseFrame(*pending)
		if perr == ws.ErrIncomplete {
			return false, nil
		}
		if perr != nil {
			return false, perr
		}
		*pending = (*pending)[n:]

		switch frame.Opcode {
		case ws.OpPing:
			if writeAll(conn, ws.PongFrame(frame.Payload)) != nil {
				return false, net.ErrClosed
			}
		case ws.OpClose:
			writeAll(conn, ws.CloseFrame(ws.CloseNormal))
			return true, nil
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (s *Server) trackClient(delta float64) {
	if s.metrics != nil {
		s.metrics.HMRClients.Add(delta)
	}
}

func (s *Server) countReload() {
	if s.metrics != nil {
		s.metrics.ReloadsTotal.Inc()
	}
}
