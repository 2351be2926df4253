// Package filter narrows the paired messages down to consultation records.
package filter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/altafino/consultation-report/internal/extract"
	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/pairing"
)

// Stage is one filtering step. Apply must accept any input, including an
// empty one.
type Stage interface {
	Name() string
	Apply(pairs []*pairing.EmailPair) []*pairing.EmailPair
	// Reason is reported when the stage removes every remaining pair.
	Reason() models.Reason
}

// Result is the outcome of a pipeline run: the surviving pairs or, when
// none survive, the reason.
type Result struct {
	Pairs  []*pairing.EmailPair
	Reason models.Reason
	Stage  string
	Detail string
}

// Empty reports whether no pair survived.
func (r Result) Empty() bool {
	return len(r.Pairs) == 0
}

// Pipeline applies stages in order.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// NewPipeline creates a pipeline running the given stages in order.
func NewPipeline(logger *slog.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Run applies every stage and stops at the first one that leaves nothing.
func (p *Pipeline) Run(pairs []*pairing.EmailPair) Result {
	if len(pairs) == 0 {
		return Result{Reason: models.ReasonNoPairsFound, Detail: "no request/response pairs to filter"}
	}

	current := pairs
	for _, stage := range p.stages {
		before := len(current)
		current = stage.Apply(current)

		p.logger.Info("filter stage applied",
			"stage", stage.Name(),
			"kept", len(current),
			"dropped", before-len(current),
		)

		if len(current) == 0 {
			return Result{
				Reason: stage.Reason(),
				Stage:  stage.Name(),
				Detail: fmt.Sprintf("%s filter removed all %d pairs", stage.Name(), before),
			}
		}
	}

	return Result{Pairs: current}
}

// KeywordStage keeps pairs whose request text contains every keyword.
// Matching is case-sensitive. An empty keyword list keeps everything.
type KeywordStage struct {
	Keywords []string
}

func (s KeywordStage) Name() string { return "keyword" }

func (s KeywordStage) Reason() models.Reason { return models.ReasonNoKeywordMatch }

func (s KeywordStage) Apply(pairs []*pairing.EmailPair) []*pairing.EmailPair {
	if len(s.Keywords) == 0 {
		return pairs
	}

	var kept []*pairing.EmailPair
	for _, p := range pairs {
		if containsAll(p.RequestText(), s.Keywords) {
			kept = append(kept, p)
		}
	}
	return kept
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

// IdentifierStage keeps pairs whose request carries an identifier of
// Length digits: in the body, or with Strict also in the subject. A zero
// Length disables the stage.
type IdentifierStage struct {
	Length int
	Strict bool
}

func (s IdentifierStage) Name() string { return "identifier" }

func (s IdentifierStage) Reason() models.Reason { return models.ReasonNoIdentifierMatch }

func (s IdentifierStage) Apply(pairs []*pairing.EmailPair) []*pairing.EmailPair {
	if s.Length <= 0 {
		return pairs
	}

	var kept []*pairing.EmailPair
	for _, p := range pairs {
		if extract.HasIdentifier(p.RequestBody(), s.Length) ||
			(s.Strict && extract.HasIdentifier(p.Subject(), s.Length)) {
			kept = append(kept, p)
		}
	}
	return kept
}
