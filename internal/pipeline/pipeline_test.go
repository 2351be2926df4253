package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/altafino/consultation-report/internal/email"
	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/progress"
	"github.com/altafino/consultation-report/internal/report"
	"github.com/altafino/consultation-report/internal/storage"
)

const account = "prof@example.ac.kr"

type fakeMailbox struct {
	connectErr error
	fetchErr   error
	messages   []*parser.Message
	panicOn    string

	gotStart, gotEnd time.Time
	gotFolders       []string
	closed           int
}

func (f *fakeMailbox) Connect(context.Context) error {
	if f.panicOn == "connect" {
		panic("boom")
	}
	return f.connectErr
}

func (f *fakeMailbox) FetchMessages(_ context.Context, start, end time.Time, folders []string) ([]*parser.Message, error) {
	if f.panicOn == "fetch" {
		var m map[string]int
		m["x"] = 1
	}
	f.gotStart, f.gotEnd, f.gotFolders = start, end, folders
	return f.messages, f.fetchErr
}

func (f *fakeMailbox) SentFolder(context.Context) (string, error) {
	return "", email.ErrFoldersUnsupported
}

func (f *fakeMailbox) Close() error {
	f.closed++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(mb *fakeMailbox, sink progress.Sink) *Runner {
	return &Runner{
		NewMailbox: func(Request) (email.Mailbox, error) { return mb, nil },
		Progress:   sink,
		Logger:     discardLogger(),
	}
}

func message(t *testing.T, id, from, to, subject, inReplyTo, body string, date time.Time) *parser.Message {
	t.Helper()

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	fmt.Fprintf(&b, "Date: %s\r\nMessage-ID: <%s>\r\n", date.Format(time.RFC1123Z), id)
	if inReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\n", inReplyTo)
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n" + body + "\r\n")

	m, err := parser.ParseMessage([]byte(b.String()), "INBOX", parser.FolderInbox, 0, discardLogger())
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	return m
}

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func consultation(t *testing.T, body string) []*parser.Message {
	t.Helper()
	return []*parser.Message{
		message(t, "req@x", "student@example.com", account, "상담 요청", "", body, day.Add(10*time.Hour)),
		message(t, "rep@x", account, "student@example.com", "Re: 상담 요청", "req@x", "<b>네</b> 오세요", day.Add(14*time.Hour+7*time.Minute)),
	}
}

func request() Request {
	return Request{Account: account, Start: day, End: day}
}

func TestRunProducesRecords(t *testing.T) {
	mb := &fakeMailbox{messages: consultation(t, "교수님 안녕하세요. 저는 20251234 학번 김철수입니다.")}
	collector := progress.NewCollector()

	out := newRunner(mb, collector).Run(context.Background(), request())
	if !out.OK() {
		t.Fatalf("Run() reason = %q, detail = %q", out.Reason, out.Detail)
	}
	if len(out.Records) != 1 {
		t.Fatalf("Run() records = %d, want 1", len(out.Records))
	}

	want := report.Record{
		Identifier:       "20251234",
		Name:             "김철수",
		ConsultationType: "01",
		Date:             "2025-03-03",
		StartTime:        "14:05",
		EndTime:          "14:35",
		Location:         "연구실",
		Subject:          "상담 요청",
		RequestText:      "교수님 안녕하세요. 저는 20251234 학번 김철수입니다.",
		ResponseText:     "<b>네</b> 오세요",
		Visibility:       "N",
	}
	if got := out.Records[0]; got != want {
		t.Errorf("record =\n%+v\nwant\n%+v", got, want)
	}

	if mb.closed != 1 {
		t.Errorf("Close() called %d times, want 1", mb.closed)
	}
	if mb.gotFolders != nil {
		t.Errorf("folders = %v, want nil for the default set", mb.gotFolders)
	}
	if wantEnd := time.Date(2025, 3, 3, 23, 59, 59, 0, time.UTC); !mb.gotEnd.Equal(wantEnd) || !mb.gotStart.Equal(day) {
		t.Errorf("range = %v - %v, want %v - %v", mb.gotStart, mb.gotEnd, day, wantEnd)
	}

	summary := collector.Snapshot()
	if summary.Messages != 2 || summary.Pairs != 1 || summary.Kept != 1 || summary.Records != 1 || summary.Failures != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunOutcomes(t *testing.T) {
	noID := "교수님 안녕하세요. 김철수입니다."
	noKeyword := "저는 20251234 학번 김철수"

	tests := []struct {
		name    string
		mailbox func(t *testing.T) *fakeMailbox
		req     func(Request) Request
		want    models.Reason
	}{
		{
			name: "auth failure",
			mailbox: func(*testing.T) *fakeMailbox {
				return &fakeMailbox{connectErr: &email.ConnectError{Kind: email.KindAuth, Err: errors.New("invalid credentials")}}
			},
			want: models.ReasonAuthFailed,
		},
		{
			name: "connection failure",
			mailbox: func(*testing.T) *fakeMailbox {
				return &fakeMailbox{connectErr: &email.ConnectError{Kind: email.KindConnection, Err: errors.New("no such host")}}
			},
			want: models.ReasonConnectionFailed,
		},
		{
			name: "fetch failure",
			mailbox: func(*testing.T) *fakeMailbox {
				return &fakeMailbox{fetchErr: errors.New("use of closed network connection")}
			},
			want: models.ReasonConnectionFailed,
		},
		{
			name:    "empty range",
			mailbox: func(*testing.T) *fakeMailbox { return &fakeMailbox{} },
			want:    models.ReasonNoMessagesInRange,
		},
		{
			name: "no replies",
			mailbox: func(t *testing.T) *fakeMailbox {
				return &fakeMailbox{messages: consultation(t, noID)[:1]}
			},
			want: models.ReasonNoPairsFound,
		},
		{
			name: "keywords missing",
			mailbox: func(t *testing.T) *fakeMailbox {
				return &fakeMailbox{messages: consultation(t, noKeyword)}
			},
			want: models.ReasonNoKeywordMatch,
		},
		{
			name: "keyword stage disabled",
			mailbox: func(t *testing.T) *fakeMailbox {
				return &fakeMailbox{messages: consultation(t, noKeyword)}
			},
			req:  func(r Request) Request { r.Keywords = []string{}; return r },
			want: models.ReasonNone,
		},
		{
			name: "identifier missing",
			mailbox: func(t *testing.T) *fakeMailbox {
				return &fakeMailbox{messages: consultation(t, noID)}
			},
			want: models.ReasonNoIdentifierMatch,
		},
		{
			name: "identifier stage disabled",
			mailbox: func(t *testing.T) *fakeMailbox {
				return &fakeMailbox{messages: consultation(t, noID)}
			},
			req:  func(r Request) Request { zero := 0; r.IdentifierLength = &zero; return r },
			want: models.ReasonNone,
		},
		{
			name:    "panic while connecting",
			mailbox: func(*testing.T) *fakeMailbox { return &fakeMailbox{panicOn: "connect"} },
			want:    models.ReasonUnexpectedFailure,
		},
		{
			name:    "runtime error while fetching",
			mailbox: func(*testing.T) *fakeMailbox { return &fakeMailbox{panicOn: "fetch"} },
			want:    models.ReasonUnexpectedFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			if tt.req != nil {
				req = tt.req(req)
			}
			out := newRunner(tt.mailbox(t), nil).Run(context.Background(), req)
			if out.Reason != tt.want {
				t.Fatalf("Run() reason = %q (%s), want %q", out.Reason, out.Detail, tt.want)
			}
			if out.Reason != models.ReasonNone {
				if len(out.Records) != 0 || len(out.Pairs) != 0 {
					t.Errorf("failed run returned %d records", len(out.Records))
				}
				if out.Detail == "" {
					t.Error("failed run has no detail")
				}
			}
			if out.RunID == "" {
				t.Error("outcome has no run id")
			}
		})
	}
}

func TestRunClosesMailboxOnFetchFailure(t *testing.T) {
	mb := &fakeMailbox{fetchErr: errors.New("broken pipe")}
	newRunner(mb, nil).Run(context.Background(), request())
	if mb.closed != 1 {
		t.Errorf("Close() called %d times, want 1", mb.closed)
	}
}

func TestRunFactoryError(t *testing.T) {
	r := &Runner{
		NewMailbox: func(Request) (email.Mailbox, error) { return nil, email.ErrUnsupportedProtocol },
		Logger:     discardLogger(),
	}
	out := r.Run(context.Background(), request())
	if out.Reason != models.ReasonUnexpectedFailure || !errors.Is(out.Err, email.ErrUnsupportedProtocol) {
		t.Errorf("Run() = %q, %v", out.Reason, out.Err)
	}
}

func TestRunStrictMode(t *testing.T) {
	// The identifier only appears in the subject.
	messages := func(t *testing.T) []*parser.Message {
		return []*parser.Message{
			message(t, "req@x", "student@example.com", account, "20251234 상담 요청", "", "교수님 안녕하세요. 김철수입니다.", day.Add(10*time.Hour)),
			message(t, "rep@x", account, "student@example.com", "Re: 20251234 상담 요청", "req@x", "네", day.Add(11*time.Hour)),
		}
	}

	strict := newRunner(&fakeMailbox{messages: messages(t)}, nil).Run(context.Background(), request())
	if !strict.OK() {
		t.Errorf("strict run reason = %q, want records", strict.Reason)
	}

	req := request()
	lenient := false
	req.Strict = &lenient
	out := newRunner(&fakeMailbox{messages: messages(t)}, nil).Run(context.Background(), req)
	if out.Reason != models.ReasonNoIdentifierMatch {
		t.Errorf("non-strict run reason = %q, want %q", out.Reason, models.ReasonNoIdentifierMatch)
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	mb := &fakeMailbox{messages: consultation(t, "교수님 안녕하세요. 저는 20251234 학번 김철수입니다.")}
	out := newRunner(mb, nil).Run(context.Background(), request())

	p := &Publisher{
		Writer:        report.CSVWriter{},
		Storage:       storage.NewFileStorage(storage.Config{Path: dir}, discardLogger()),
		NamingPattern: "report_{account}_{date}",
		Logger:        discardLogger(),
		now:           func() time.Time { return day },
	}

	path, err := p.Publish(context.Background(), account, out)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if want := filepath.Join(dir, "report_prof_example.ac.kr_20250303.csv"); path != want {
		t.Errorf("Publish() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("20251234,김철수,01,2025-03-03,14:05,14:35")) {
		t.Errorf("report content = %q", data)
	}

	if _, err := p.Publish(context.Background(), account, Outcome{Reason: models.ReasonNoPairsFound}); !errors.Is(err, ErrNoRecords) {
		t.Errorf("Publish(empty) error = %v, want ErrNoRecords", err)
	}
}
