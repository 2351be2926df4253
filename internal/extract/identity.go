package extract

import (
	"fmt"
	"regexp"
	"sync"
)

// nameStopwords are generic nouns the name patterns tend to capture.
var nameStopwords = map[string]bool{
	"학생":   true,
	"이름":   true,
	"학번":   true,
	"교수":   true,
	"교수님":  true,
	"학과":   true,
	"전공":   true,
	"본인":   true,
	"수강생":  true,
	"학부생":  true,
	"대학원생": true,
}

type patternSet struct {
	identifier *regexp.Regexp
	names      []*regexp.Regexp
}

var (
	patternMu    sync.Mutex
	patternCache = map[int]*patternSet{}
)

func patternsFor(n int) *patternSet {
	patternMu.Lock()
	defer patternMu.Unlock()

	if ps, ok := patternCache[n]; ok {
		return ps
	}

	id := fmt.Sprintf(`\d{%d}`, n)
	ps := &patternSet{
		identifier: regexp.MustCompile(`(?:^|\D)(` + id + `)(?:\D|$)`),
		names: []*regexp.Regexp{
			// 저는 20251234 학번 김철수입니다
			regexp.MustCompile(`저는\s*` + id + `\s*(?:학번\s*)?(?:이고\s*|이며\s*|,\s*)?([가-힣]{2,4}?)\s*(?:입니다|이고|이며|이라고|라고)`),
			// 저는 컴퓨터공학과 김철수입니다
			regexp.MustCompile(`저는\s*(?:[가-힣A-Za-z0-9]+\s+)*?([가-힣]{2,4}?)\s*(?:입니다|이고|이며|이라고|라고)`),
			// 20251234 김철수
			regexp.MustCompile(id + `\s*(?:학번\s*)?[,/]?\s*([가-힣]{2,4}?)(?:입니다|이고|이며|님|\s|[,.)]|$)`),
		},
	}
	patternCache[n] = ps
	return ps
}

// Identifier returns the first run of exactly n digits in text, or "" when
// there is none or n is not positive.
func Identifier(text string, n int) string {
	if n <= 0 {
		return ""
	}
	m := patternsFor(n).identifier.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// HasIdentifier reports whether text contains a run of exactly n digits.
func HasIdentifier(text string, n int) bool {
	return Identifier(text, n) != ""
}

// Name guesses the sender's name from a Korean self-introduction. The
// patterns are tried in a fixed order and the first match that is not a
// generic noun wins. idLength sets the identifier the second and third
// patterns anchor on; non-positive values fall back to 8 digits.
func Name(text string, idLength int) string {
	if idLength <= 0 {
		idLength = 8
	}
	for _, re := range patternsFor(idLength).names {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if candidate := m[1]; !nameStopwords[candidate] {
				return candidate
			}
		}
	}
	return ""
}
