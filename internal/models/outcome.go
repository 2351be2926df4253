package models

// Reason explains why a run produced no report rows.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAuthFailed        Reason = "AUTH_FAILED"
	ReasonConnectionFailed  Reason = "CONNECTION_FAILED"
	ReasonNoMessagesInRange Reason = "NO_MESSAGES_IN_RANGE"
	ReasonNoPairsFound      Reason = "NO_PAIRS_FOUND"
	ReasonNoKeywordMatch    Reason = "NO_KEYWORD_MATCH"
	ReasonNoIdentifierMatch Reason = "NO_IDENTIFIER_MATCH"
	ReasonUnexpectedFailure Reason = "UNEXPECTED_FAILURE"
)

// IsCredentialProblem reports whether the user should check the account
// settings rather than the search criteria.
func (r Reason) IsCredentialProblem() bool {
	return r == ReasonAuthFailed || r == ReasonConnectionFailed
}

// Guidance returns the message shown to the person who requested the run.
func (r Reason) Guidance() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonAuthFailed:
		return "Login was rejected. Check the account and app password; accounts with two-step verification need an app password."
	case ReasonConnectionFailed:
		return "Could not reach the mail server. Check the account, the app password and that IMAP access is enabled."
	case ReasonNoMessagesInRange:
		return "No emails found in the specified date range."
	case ReasonNoPairsFound:
		return "No email pairs found: none of the messages in the range were answered."
	case ReasonNoKeywordMatch:
		return "No emails matching keyword criteria."
	case ReasonNoIdentifierMatch:
		return "No emails containing student ID."
	case ReasonUnexpectedFailure:
		return "The report could not be created because of an unexpected error."
	default:
		return string(r)
	}
}
