package mail

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOneSession speaks just enough SMTP for a single plain session,
// capturing the DATA block into data.
func serveOneSession(ln net.Listener, data *bytes.Buffer) error {
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(line string) { fmt.Fprintf(conn, "%s\r\n", line) }
	reply("220 test.local ESMTP")

	inData := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if inData {
			if line == "." {
				inData = false
				reply("250 OK")
				continue
			}
			data.WriteString(line + "\n")
			continue
		}
		switch {
		case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
			reply("250-test.local")
			reply("250 OK")
		case strings.HasPrefix(line, "MAIL"), strings.HasPrefix(line, "RCPT"):
			reply("250 OK")
		case line == "DATA":
			reply("354 end with .")
			inData = true
		case line == "QUIT":
			reply("221 bye")
			return nil
		default:
			reply("250 OK")
		}
	}
}

func TestSendDeliversMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var got bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- serveOneSession(ln, &got) }()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	s := NewSender(host, port, "", "", "concierge@example.com")

	err = s.Send(context.Background(), "diner@example.com", "Italian suggestions", "Enjoy your meal!")
	require.NoError(t, err)
	require.NoError(t, <-done)

	mail := got.String()
	assert.Contains(t, mail, "From: concierge@example.com")
	assert.Contains(t, mail, "To: diner@example.com")
	assert.Contains(t, mail, "Subject: Italian suggestions")
	assert.Contains(t, mail, "Enjoy your meal!")
}

func TestSendFailsInsteadOfHangingOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept and go silent: no greeting, ever.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	s := NewSender(host, port, "", "", "concierge@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Send(ctx, "diner@example.com", "subject", "body")
	require.Error(t, err, "a silent server must fail the send")
	assert.Less(t, time.Since(start), 2*time.Second, "the send must respect the context deadline")
}

func TestSendDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // refuse connections

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	s := NewSender(host, port, "", "", "concierge@example.com")

	err = s.Send(context.Background(), "diner@example.com", "subject", "body")
	require.Error(t, err)
}
