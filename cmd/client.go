// Package cmd implements the CLI: the daemon's "start" subcommand and a
// handful of thin control-plane clients (status/stop/reload/shutdown) that
// dial the UNIX socket and speak the line-oriented control protocol.
package cmd

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// controlClient is a minimal client for the line-oriented control-plane
// protocol ("<category> [<verb>] [<argument>]" in, text back).
type controlClient struct {
	socket  string
	timeout time.Duration
}

func newControlClient(socket string) *controlClient {
	return &controlClient{socket: socket, timeout: 10 * time.Second}
}

// send dials the socket, writes one query line, and reads back the answer.
func (c *controlClient) send(query string) (string, error) {
	conn, err := net.DialTimeout("unix", c.socket, c.timeout)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", c.socket, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write([]byte(strings.TrimRight(query, "\n") + "\n")); err != nil {
		return "", fmt.Errorf("send query: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\n"), nil
}
