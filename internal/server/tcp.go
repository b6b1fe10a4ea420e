package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

const connReadTimeout = 5 * time.Second

type response struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.With(zap.Error(err)).Warn("Accept failed")
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn consumes newline-delimited commands until a blank line or
// EOF, enqueues each parseable one, and answers with a single JSON
// object. Parsing and enqueueing are the only work done here; this path
// never blocks on the device.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(connReadTimeout))

	var lines []string
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		writeResponse(conn, response{OK: false, Error: "no commands"})
		return
	}

	var skipped []string
	for _, line := range lines {
		side, expression, spec, err := parseLine(line)
		if err == nil {
			err = s.invoke("tcp", side, expression, spec)
		}
		if err != nil {
			skipped = append(skipped, err.Error())
		}
	}

	writeResponse(conn, response{OK: true, Skipped: skipped})
}

func writeResponse(conn net.Conn, resp response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	conn.Write(append(payload, '\n'))
}
