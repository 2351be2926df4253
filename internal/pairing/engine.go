// Package pairing links replies to the messages they answer.
package pairing

import (
	"log/slog"
	"time"

	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/extract"
)

// Mode selects the pairing strategy.
type Mode string

const (
	// ModeAuto uses the extended strategy when any message came from a
	// sent folder and the primary strategy otherwise.
	ModeAuto     Mode = "auto"
	ModePrimary  Mode = "primary"
	ModeExtended Mode = "extended"
)

// Engine pairs requests with responses for one account. It holds no state
// between calls.
type Engine struct {
	account string
	mode    Mode
	maxGap  time.Duration
	opts    extract.Options
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode selects the strategy; the default is ModeAuto.
func WithMode(mode Mode) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithMaxSubjectGap bounds how far apart a subject-matched request and its
// reply may be. Zero means unbounded.
func WithMaxSubjectGap(gap time.Duration) Option {
	return func(e *Engine) { e.maxGap = gap }
}

// WithLogger sets the logger used for pairing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine for account. opts is attached to every pair
// the engine creates.
func NewEngine(account string, opts extract.Options, options ...Option) *Engine {
	e := &Engine{
		account: account,
		mode:    ModeAuto,
		opts:    opts,
		logger:  slog.Default(),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Pair links the messages into request/response pairs, deduplicated by
// (request Message-ID, response Message-ID) with the first occurrence kept.
func (e *Engine) Pair(messages []*parser.Message) []*EmailPair {
	mode := e.mode
	if mode == ModeAuto || mode == "" {
		mode = ModePrimary
		for _, m := range messages {
			if m.FolderKind == parser.FolderSent {
				mode = ModeExtended
				break
			}
		}
	}

	var pairs []*EmailPair
	if mode == ModeExtended {
		pairs = e.extended(messages)
	} else {
		pairs = e.primary(messages)
	}

	unique := Dedupe(pairs)
	e.logger.Info("paired messages",
		"strategy", mode,
		"messages", len(messages),
		"pairs", len(unique),
		"duplicates", len(pairs)-len(unique),
	)
	return unique
}

// primary links every reply sent by the account to the message its
// In-Reply-To (or first References entry) names.
func (e *Engine) primary(messages []*parser.Message) []*EmailPair {
	index := indexByID(messages)

	var pairs []*EmailPair
	for _, reply := range messages {
		if !reply.IsReply() || !reply.FromContains(e.account) {
			continue
		}
		original, ok := index[reply.ParentID()]
		if !ok || original == reply {
			e.logger.Debug("original not found",
				"reply", reply.MessageID,
				"parent", reply.ParentID(),
			)
			continue
		}
		pairs = append(pairs, NewPair(original, reply, StrategyPrimary, SideRequest, e.opts))
	}
	return pairs
}

// extended pairs across a sent folder and the other folders in two passes:
// the account's replies to correspondents, then correspondents' replies to
// the account.
func (e *Engine) extended(messages []*parser.Message) []*EmailPair {
	var sent, other []*parser.Message
	for _, m := range messages {
		if m.FolderKind == parser.FolderSent {
			sent = append(sent, m)
		} else {
			other = append(other, m)
		}
	}

	otherByID, otherBySubject := indexByID(other), indexBySubject(other)
	sentByID, sentBySubject := indexByID(sent), indexBySubject(sent)

	var pairs []*EmailPair
	for _, reply := range sent {
		if !reply.FromContains(e.account) {
			continue
		}
		original, strategy := e.resolve(reply, otherByID, otherBySubject)
		if original == nil {
			continue
		}
		if original.FromContains(e.account) {
			e.logger.Debug("skipping self-originated thread",
				"request", original.MessageID,
				"response", reply.MessageID,
			)
			continue
		}
		pairs = append(pairs, NewPair(original, reply, strategy, SideRequest, e.opts))
	}

	for _, reply := range other {
		if !reply.AddressedTo(e.account) || reply.FromContains(e.account) {
			continue
		}
		if !reply.IsReply() && !LooksLikeReply(reply.Subject) {
			continue
		}
		original, strategy := e.resolve(reply, sentByID, sentBySubject)
		if original == nil {
			continue
		}
		pairs = append(pairs, NewPair(original, reply, strategy, SideResponse, e.opts))
	}

	return pairs
}

// resolve finds the message reply answers: by Message-ID linkage first,
// then, for reply-shaped subjects, the latest earlier message with the
// same normalized subject.
func (e *Engine) resolve(reply *parser.Message, byID map[string]*parser.Message, bySubject map[string][]*parser.Message) (*parser.Message, Strategy) {
	for _, id := range linkedIDs(reply) {
		if original, ok := byID[id]; ok && original != reply {
			return original, StrategyExtendedID
		}
	}

	if !LooksLikeReply(reply.Subject) || !reply.HasDate {
		return nil, ""
	}

	var best *parser.Message
	for _, c := range bySubject[NormalizeSubject(reply.Subject)] {
		if c == reply || !c.HasDate || !c.Date.Before(reply.Date) {
			continue
		}
		if e.maxGap > 0 && reply.Date.Sub(c.Date) > e.maxGap {
			continue
		}
		if best == nil || c.Date.After(best.Date) {
			best = c
		}
	}
	if best == nil {
		return nil, ""
	}
	return best, StrategyExtendedSubject
}

// linkedIDs lists the ids a reply may point at: its parent id first, then
// the remaining References from the most recent backwards.
func linkedIDs(m *parser.Message) []string {
	var ids []string
	if parent := m.ParentID(); parent != "" {
		ids = append(ids, parent)
	}
	for i := len(m.References) - 1; i >= 0; i-- {
		if m.References[i] != ids[0] {
			ids = append(ids, m.References[i])
		}
	}
	return ids
}

// indexByID maps Message-ID to message; the first message with an id wins.
func indexByID(messages []*parser.Message) map[string]*parser.Message {
	index := make(map[string]*parser.Message, len(messages))
	for _, m := range messages {
		if _, exists := index[m.MessageID]; !exists {
			index[m.MessageID] = m
		}
	}
	return index
}

func indexBySubject(messages []*parser.Message) map[string][]*parser.Message {
	index := make(map[string][]*parser.Message)
	for _, m := range messages {
		key := NormalizeSubject(m.Subject)
		if key == "" {
			continue
		}
		index[key] = append(index[key], m)
	}
	return index
}

// Dedupe drops pairs whose key was already seen, keeping order.
func Dedupe(pairs []*EmailPair) []*EmailPair {
	seen := make(map[Key]bool, len(pairs))
	out := make([]*EmailPair, 0, len(pairs))
	for _, p := range pairs {
		k := p.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
