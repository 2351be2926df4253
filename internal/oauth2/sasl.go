package oauth2

import (
	"github.com/emersion/go-sasl"
)

// NewXOAUTH2Client creates a SASL client for the XOAUTH2 mechanism used by
// Gmail and Outlook IMAP.
func NewXOAUTH2Client(username, token string) sasl.Client {
	return &xoauth2Client{
		username: username,
		token:    token,
	}
}

type xoauth2Client struct {
	username string
	token    string
}

// Start sends "user=<username>\x01auth=Bearer <token>\x01\x01".
func (a *xoauth2Client) Start() (mech string, ir []byte, err error) {
	return "XOAUTH2", []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"), nil
}

// Next answers an error challenge with an empty response so the server
// can finish the exchange and report the failure.
func (a *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	if len(challenge) > 0 {
		return []byte{}, nil
	}
	return nil, sasl.ErrUnexpectedServerChallenge
}
