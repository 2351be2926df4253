package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/extract"
	"github.com/altafino/consultation-report/internal/pairing"
)

func testPair(t *testing.T, body string) *pairing.EmailPair {
	t.Helper()

	req := fmt.Sprintf("From: s@example.com\r\nSubject: 상담 요청\r\nDate: %s\r\nMessage-ID: <req@x>\r\n\r\n%s\r\n",
		time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC).Format(time.RFC1123Z), body)
	rep := fmt.Sprintf("From: prof@example.ac.kr\r\nSubject: Re: 상담 요청\r\nDate: %s\r\nMessage-ID: <rep@x>\r\nIn-Reply-To: <req@x>\r\n\r\n<b>네</b>\r\n",
		time.Date(2025, 3, 4, 8, 47, 0, 0, time.UTC).Format(time.RFC1123Z))

	request, err := parser.ParseMessage([]byte(req), "INBOX", parser.FolderInbox, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	response, err := parser.ParseMessage([]byte(rep), "INBOX", parser.FolderInbox, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pairing.NewPair(request, response, pairing.StrategyPrimary, pairing.SideRequest, extract.DefaultOptions())
}

func TestMaterialize(t *testing.T) {
	full := testPair(t, "교수님 안녕하세요. 저는 20251234 학번 김철수입니다.")
	anonymous := testPair(t, "교수님 안녕하세요 질문이 있습니다")

	records := Materialize([]*pairing.EmailPair{full, anonymous}, DefaultFixed())
	if len(records) != 2 {
		t.Fatalf("Materialize() = %d records, want 2", len(records))
	}

	want := Record{
		Identifier:       "20251234",
		Name:             "김철수",
		ConsultationType: "01",
		Date:             "2025-03-04",
		StartTime:        "09:05",
		EndTime:          "09:35",
		Location:         "연구실",
		Subject:          "상담 요청",
		RequestText:      "교수님 안녕하세요. 저는 20251234 학번 김철수입니다.",
		ResponseText:     "<b>네</b>",
		Visibility:       "N",
	}
	if records[0] != want {
		t.Errorf("Materialize()[0] = %+v\nwant %+v", records[0], want)
	}
	if records[1].Identifier != "" || records[1].Name != "" {
		t.Errorf("absent fields should be empty, got %q/%q", records[1].Identifier, records[1].Name)
	}
	if got := len(records[1].Row()); got != len(Columns) {
		t.Errorf("Row() has %d values, want %d", got, len(Columns))
	}
}

func TestCSVWriter(t *testing.T) {
	records := []Record{
		{Identifier: "20251234", Name: "김철수", Subject: "상담, 요청", Visibility: "N"},
		{Subject: "빈 필드", Visibility: "N"},
	}

	var buf bytes.Buffer
	if err := (CSVWriter{}).Write(&buf, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Fatal("output should start with a UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(Columns, "|") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][7] != "상담, 요청" {
		t.Errorf("subject = %q", rows[1][7])
	}
	if rows[2][0] != "" || rows[2][1] != "" || len(rows[2]) != len(Columns) {
		t.Errorf("empty fields row = %v", rows[2])
	}
}

func TestXLSXWriter(t *testing.T) {
	records := []Record{
		{Identifier: "20251234", Name: "김철수", ConsultationType: "01", Date: "2025-03-04", Subject: "상담", Visibility: "N"},
		{Subject: "두번째", Visibility: "Y"},
	}

	var buf bytes.Buffer
	if err := (XLSXWriter{}).Write(&buf, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "학번" || rows[0][10] != "공개여부" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "20251234" || rows[1][1] != "김철수" || rows[1][7] != "상담" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][0] != "" || rows[2][7] != "두번째" || rows[2][10] != "Y" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		err    error
	}{
		{"xlsx", ".xlsx", nil},
		{"", ".xlsx", nil},
		{"CSV", ".csv", nil},
		{"pdf", "", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(tt.format)
			if !errors.Is(err, tt.err) {
				t.Fatalf("NewWriter(%q) error = %v, want %v", tt.format, err, tt.err)
			}
			if err == nil && w.Extension() != tt.ext {
				t.Errorf("Extension() = %q, want %q", w.Extension(), tt.ext)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 3, 4, 14, 15, 0, 0, time.UTC)

	tests := []struct {
		pattern string
		account string
		want    string
	}{
		{"", "", "consultation_report_20250304_141500.xlsx"},
		{"{account}_{datetime}", "prof@example.ac.kr", "prof_example.ac.kr_20250304_141500.xlsx"},
		{"report:{date}", "", "report_20250304.xlsx"},
	}
	for _, tt := range tests {
		if got := Filename(tt.pattern, tt.account, ts, ".xlsx"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}
