package oauth2

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestXOAUTH2Client(t *testing.T) {
	mech, ir, err := NewXOAUTH2Client("prof@example.ac.kr", "tok").Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if mech != "XOAUTH2" {
		t.Errorf("mech = %q", mech)
	}
	want := "user=prof@example.ac.kr\x01auth=Bearer tok\x01\x01"
	if string(ir) != want {
		t.Errorf("initial response = %q, want %q", ir, want)
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  bool
		status   int
	}{
		{"ok", "?state=s1&code=abc", "abc", false, http.StatusOK},
		{"state mismatch", "?state=other&code=abc", "", true, http.StatusBadRequest},
		{"missing code", "?state=s1", "", true, http.StatusBadRequest},
		{"denied", "?error=access_denied", "", true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback"+tt.query, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			res := <-results
			if (res.err != nil) != tt.wantErr || res.code != tt.wantCode {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestTokenManagerPersistence(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := GetGoogleConfig("id", "secret", DefaultRedirectURL)

	tm, err := NewTokenManager(cfg, dir, "acct", logger)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	if _, err := tm.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Token() error = %v, want ErrNoToken", err)
	}

	token := &oauth2.Token{AccessToken: "access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := tm.SetToken(token); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	reloaded, err := NewTokenManager(cfg, dir, "acct", logger)
	if err != nil {
		t.Fatal(err)
	}
	access, err := reloaded.AccessToken(context.Background())
	if err != nil || access != "access" {
		t.Fatalf("AccessToken() = %q, %v", access, err)
	}

	if err := reloaded.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := reloaded.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestGetProviderConfig(t *testing.T) {
	if _, err := GetProviderConfig("yahoo", "", "", ""); err == nil {
		t.Error("unknown provider should fail")
	}
	cfg, err := GetProviderConfig("microsoft", "id", "secret", DefaultRedirectURL)
	if err != nil || len(cfg.Scopes) != 2 {
		t.Errorf("microsoft config = %+v, %v", cfg, err)
	}
}
