package control

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerAnswersGeneralHelp(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "control.sock")
	srv := New(socket, NewGeneralHandler(&fakeServer{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	var conn net.Conn
	var err error
	require.Eventually(t, func() bool {
		conn, err = net.Dial("unix", socket)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	defer conn.Close()

	_, err = conn.Write([]byte("general help\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "The \"general\" queries")

	cancel()
	<-errCh
}
