package extract

import (
	"strings"
	"testing"
	"time"
)

func TestTimeWindow(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	tests := []struct {
		name string
		at   time.Time
		want Window
	}{
		{
			name: "clamped to earliest hour",
			at:   time.Date(2025, 3, 3, 8, 47, 0, 0, kst),
			want: Window{Date: "2025-03-03", Start: "09:05", End: "09:35"},
		},
		{
			name: "floored to five minutes",
			at:   time.Date(2025, 3, 3, 14, 7, 0, 0, kst),
			want: Window{Date: "2025-03-03", Start: "14:05", End: "14:35"},
		},
		{
			name: "end wraps past midnight",
			at:   time.Date(2025, 3, 3, 23, 50, 0, 0, kst),
			want: Window{Date: "2025-03-03", Start: "23:50", End: "00:20"},
		},
		{
			name: "exact multiple unchanged",
			at:   time.Date(2025, 3, 3, 9, 0, 59, 0, time.UTC),
			want: Window{Date: "2025-03-03", Start: "09:00", End: "09:30"},
		},
		{
			name: "just after midnight clamps",
			at:   time.Date(2025, 3, 4, 0, 3, 0, 0, time.UTC),
			want: Window{Date: "2025-03-04", Start: "09:05", End: "09:35"},
		},
	}

	opts := DefaultOptions()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := opts.TimeWindow(tt.at); got != tt.want {
				t.Errorf("TimeWindow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTimeWindowLocationAndRounding(t *testing.T) {
	opts := DefaultOptions()
	opts.Location = time.FixedZone("KST", 9*3600)
	opts.Granularity = 0

	// 05:07 UTC is 14:07 in Seoul.
	got := opts.TimeWindow(time.Date(2025, 3, 3, 5, 7, 0, 0, time.UTC))
	want := Window{Date: "2025-03-03", Start: "14:07", End: "14:37"}
	if got != want {
		t.Errorf("TimeWindow() = %+v, want %+v", got, want)
	}

	got = opts.TimeWindow(time.Date(2025, 3, 2, 22, 30, 0, 0, time.UTC))
	want = Window{Date: "2025-03-03", Start: "09:00", End: "09:30"}
	if got != want {
		t.Errorf("TimeWindow() = %+v, want %+v", got, want)
	}
}

func TestRequestText(t *testing.T) {
	opts := DefaultOptions()

	if got := opts.RequestText("<div>교수님 <b>안녕하세요</b></div>"); got != "교수님 안녕하세요" {
		t.Errorf("RequestText() = %q", got)
	}

	long := strings.Repeat("가", 600)
	if got := opts.RequestText(long); len([]rune(got)) != 490 {
		t.Errorf("RequestText() kept %d characters, want 490", len([]rune(got)))
	}
	if got := opts.ResponseText(long); len([]rune(got)) != 490 {
		t.Errorf("ResponseText() kept %d characters, want 490", len([]rune(got)))
	}
	if got := opts.ResponseText("<b>kept</b>"); got != "<b>kept</b>" {
		t.Errorf("ResponseText() = %q, markup should stay on the response side", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"안녕하세요", 2, "안녕"},
		{"hello", 0, "hello"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"self introduction", "저는 20251234 학번 김철수입니다", 8, "20251234"},
		{"first of several", "20251234 그리고 20259999", 8, "20251234"},
		{"longer run ignored", "연락처 01012345678 입니다", 8, ""},
		{"punctuation boundary", "학번:20251234.", 8, "20251234"},
		{"other length", "학번 202512 입니다", 6, "202512"},
		{"disabled", "20251234", 0, ""},
		{"none", "교수님 안녕하세요", 8, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identifier(tt.text, tt.n); got != tt.want {
				t.Errorf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"id then name", "저는 20251234 학번 김철수입니다", "김철수"},
		{"department then name", "안녕하세요 교수님, 저는 컴퓨터공학과 이영희입니다.", "이영희"},
		{"id and name without intro", "20251234 박민수 올림", "박민수"},
		{"stopword skipped", "저는 학생입니다. 20251234 최지우입니다", "최지우"},
		{"nothing", "교수님 안녕하세요", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.text, 8); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}
