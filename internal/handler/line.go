package handler

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/latebit/tquery/internal/command"
	"github.com/latebit/tquery/internal/render"
)

// RateLimited is the line session reply to a command over the rate limit.
const RateLimited = "Rate limit exceeded.\n"

// ServeLine runs an interactive session: it prompts, reads one command
// per line and writes the text reply, until the client closes the
// connection or stays silent for idle. idle of zero waits forever.
func (h *Handler) ServeLine(conn net.Conn, idle time.Duration) error {
	defer conn.Close()

	remote := conn.RemoteAddr()
	h.logger().Info("line session opened", "remote", remote.String())
	defer h.logger().Info("line session closed", "remote", remote.String())

	w := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(conn)
	for {
		if _, err := io.WriteString(w, render.Prompt); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if idle > 0 {
			conn.SetReadDeadline(time.Now().Add(idle))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read command: %w", err)
			}
			return nil
		}

		if !h.Limiter.AllowAddr(remote) {
			if _, err := io.WriteString(w, RateLimited); err != nil {
				return err
			}
			continue
		}

		cmd := command.Parse(scanner.Text())
		h.logger().Debug("line command", "kind", cmd.Kind.String(), "remote", remote.String())
		if err := h.Service.Execute(cmd, w); err != nil {
			return err
		}
	}
}
