package pairing

import (
	"github.com/altafino/consultation-report/internal/email/parser"
	"github.com/altafino/consultation-report/internal/extract"
)

// Strategy names how a pair was linked.
type Strategy string

const (
	StrategyPrimary         Strategy = "primary"
	StrategyExtendedID      Strategy = "extended-id"
	StrategyExtendedSubject Strategy = "extended-subject"
)

// Side names which message of a pair came from the correspondent.
type Side string

const (
	SideRequest  Side = "request"
	SideResponse Side = "response"
)

// Key identifies a pair by its two Message-IDs.
type Key struct {
	Request  string
	Response string
}

// EmailPair links an inquiry to its reply. Pairs are never mutated after
// the engine creates them; all derived fields are computed on demand.
type EmailPair struct {
	Request       *parser.Message
	Response      *parser.Message
	Strategy      Strategy
	Correspondent Side

	opts extract.Options
}

// NewPair builds a pair with the given extraction options.
func NewPair(request, response *parser.Message, strategy Strategy, correspondent Side, opts extract.Options) *EmailPair {
	return &EmailPair{
		Request:       request,
		Response:      response,
		Strategy:      strategy,
		Correspondent: correspondent,
		opts:          opts,
	}
}

// Key returns the deduplication key of the pair.
func (p *EmailPair) Key() Key {
	return Key{Request: p.Request.MessageID, Response: p.Response.MessageID}
}

// CorrespondentAddress returns the external party's address.
func (p *EmailPair) CorrespondentAddress() string {
	if p.Correspondent == SideResponse {
		return p.Response.Sender()
	}
	return p.Request.Sender()
}

// Window returns the consultation date and slot.
func (p *EmailPair) Window() extract.Window {
	if !p.Response.HasDate {
		return extract.Window{}
	}
	return p.opts.TimeWindow(p.Response.Date)
}

// ConsultationDate is the calendar date of the response.
func (p *EmailPair) ConsultationDate() string { return p.Window().Date }

// StartTime is the normalized start of the consultation slot.
func (p *EmailPair) StartTime() string { return p.Window().Start }

// EndTime is StartTime plus the configured duration.
func (p *EmailPair) EndTime() string { return p.Window().End }

// Subject is the request subject.
func (p *EmailPair) Subject() string { return p.Request.Subject }

// RequestBody is the full decoded request body.
func (p *EmailPair) RequestBody() string { return p.Request.Body() }

// RequestText is the request body with markup removed, truncated.
func (p *EmailPair) RequestText() string { return p.opts.RequestText(p.Request.Body()) }

// ResponseText is the response body, truncated.
func (p *EmailPair) ResponseText() string { return p.opts.ResponseText(p.Response.Body()) }

// Identifier is the first identifier found in the request body.
func (p *EmailPair) Identifier() string {
	return extract.Identifier(p.Request.Body(), p.opts.IdentifierLength)
}

// Name is the best-effort sender name found in the request body.
func (p *EmailPair) Name() string {
	return extract.Name(p.Request.Body(), p.opts.IdentifierLength)
}
