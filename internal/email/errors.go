package email

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

var (
	// ErrFoldersUnsupported is returned by protocols without folders.
	ErrFoldersUnsupported = errors.New("folders are not supported by this protocol")
	// ErrNoSentFolder is returned when no folder looks like sent mail.
	ErrNoSentFolder = errors.New("no sent folder found")
	// ErrUnsupportedProtocol is returned for an unknown mailbox protocol.
	ErrUnsupportedProtocol = errors.New("unsupported mailbox protocol")
	// ErrNotConnected is returned when fetching before Connect succeeded.
	ErrNotConnected = errors.New("mailbox is not connected")

	// errFolderUnavailable marks a folder the server refused to open on a
	// connection that is still usable.
	errFolderUnavailable = errors.New("failed to select folder")
)

// ErrorKind separates rejected credentials from unreachable servers.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindConnection ErrorKind = "connection"
)

// ConnectError is returned when a mailbox session could not be opened.
type ConnectError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

var authMarkers = []string{"auth", "password", "credential", "login"}

// classify decides whether a login error means the credentials were
// rejected. Only the server's own text is inspected, so callers must pass
// the unwrapped error.
func classify(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return KindAuth
		}
	}
	return KindConnection
}

func loginError(protocol string, err error) *ConnectError {
	return &ConnectError{Kind: classify(err), Err: fmt.Errorf("%s login failed: %w", protocol, err)}
}

func connectionError(format string, args ...any) *ConnectError {
	return &ConnectError{Kind: KindConnection, Err: fmt.Errorf(format, args...)}
}

// IsAuthError reports whether err is a rejected login.
func IsAuthError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Kind == KindAuth
}

// IsConnectionError reports whether err is a failure to reach or talk to
// the server.
func IsConnectionError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Kind == KindConnection
}

// isTransportError reports whether err came from the connection itself
// rather than from the server rejecting a single command.
func isTransportError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
