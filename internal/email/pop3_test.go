package email

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/altafino/consultation-report/internal/errorlog"
	"github.com/altafino/consultation-report/internal/types"
)

// fakePOP3 serves one session over a two-message mailbox. retr maps a
// message number to the server's RETR reply; a number without a reply
// makes the server close the socket.
func fakePOP3(t *testing.T, retr map[string]string) *types.Config {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fmt.Fprint(conn, "+OK ready\r\n")
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch strings.ToUpper(fields[0]) {
			case "USER", "PASS", "NOOP":
				fmt.Fprint(conn, "+OK\r\n")
			case "STAT":
				fmt.Fprint(conn, "+OK 2 400\r\n")
			case "LIST":
				fmt.Fprint(conn, "+OK 2 messages\r\n1 200\r\n2 200\r\n.\r\n")
			case "RETR":
				reply, ok := retr[fields[1]]
				if !ok {
					return
				}
				fmt.Fprint(conn, reply)
			case "QUIT":
				fmt.Fprint(conn, "+OK bye\r\n")
				return
			default:
				fmt.Fprint(conn, "-ERR unknown command\r\n")
			}
		}
	}()

	cfg := &types.Config{}
	cfg.Meta.ID = "pop3-test"
	cfg.Mailbox.Protocol = "pop3"
	cfg.Mailbox.Username = "prof@example.ac.kr"
	cfg.Mailbox.MaxConcurrent = 1
	cfg.Mailbox.Protocols.POP3.Server = "127.0.0.1"
	cfg.Mailbox.Protocols.POP3.Port = l.Addr().(*net.TCPAddr).Port
	return cfg
}

func retrReply(subject string, date time.Time) string {
	return "+OK message follows\r\n" + rfc822(subject, date, "") + ".\r\n"
}

func TestPOP3ClientFetchMessages(t *testing.T) {
	cfg := fakePOP3(t, map[string]string{
		"1": "-ERR no such message\r\n",
		"2": retrReply("request", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
	})

	errs := &recordingErrors{}
	c := NewPOP3Client(cfg, Options{Password: "secret", Errors: errs}, discardLogger())
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	msgs, err := c.FetchMessages(ctx, marchStart, marchEnd, nil)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Subject != "request" || msgs[0].UID != 2 {
		t.Fatalf("messages = %q, want only request with uid 2", subjects(msgs))
	}

	// A refused message is skipped and logged; the session goes on.
	if len(errs.entries) != 1 {
		t.Fatalf("recorded %d errors, want 1", len(errs.entries))
	}
	if e := errs.entries[0]; e.UID != 1 || e.ErrorType != errorlog.StageFetch {
		t.Errorf("recorded error = %+v", e)
	}
}

func TestPOP3ClientConnectionDropped(t *testing.T) {
	cfg := fakePOP3(t, nil)

	c := NewPOP3Client(cfg, Options{Password: "secret"}, discardLogger())
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	msgs, err := c.FetchMessages(ctx, marchStart, marchEnd, nil)
	if err == nil {
		t.Fatalf("FetchMessages() = %d messages, want an error", len(msgs))
	}
	if !IsConnectionError(err) {
		t.Errorf("FetchMessages() error = %v, want connection error", err)
	}
}
