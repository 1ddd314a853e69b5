package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
)

type graphServer struct {
	*httptest.Server
	tokenCalls atomic.Int32
	sendCalls  atomic.Int32
	lastSend   atomic.Value // sendMailRequest
	sendStatus int
	sendBody   string
	tokenFail  atomic.Bool
}

func newGraphServer(t *testing.T, sendStatus int, sendBody string) *graphServer {
	t.Helper()
	gs := &graphServer{sendStatus: sendStatus, sendBody: sendBody}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		gs.tokenCalls.Add(1)
		if gs.tokenFail.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type: got %q", got)
		}
		if got := r.PostForm.Get("scope"); got != graphScope {
			t.Errorf("scope: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("POST /users/{sender}/sendMail", func(w http.ResponseWriter, r *http.Request) {
		gs.sendCalls.Add(1)
		if got := r.PathValue("sender"); got != "student@uic.edu" {
			t.Errorf("sender: got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization: got %q", got)
		}
		var req sendMailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gs.lastSend.Store(req)
		w.WriteHeader(gs.sendStatus)
		w.Write([]byte(gs.sendBody))
	})

	gs.Server = httptest.NewServer(mux)
	t.Cleanup(gs.Close)
	return gs
}

func (gs *graphServer) provider() *Provider {
	return New(Config{
		TenantID:     "tenant-1",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Sender:       "student@uic.edu",
		GraphURL:     gs.URL,
		LoginURL:     gs.URL,
		HTTPClient:   gs.Client(),
	})
}

func testMessage() *email.Email {
	return email.Draft{
		To:      "prof@uic.edu",
		Subject: "Research question",
		Body:    "Hello Professor,\n\nI have a question.\n\nSincerely,\nBhagyesh",
	}.Message("student@uic.edu")
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	gs := newGraphServer(t, http.StatusAccepted, "")
	if err := gs.provider().Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	req, ok := gs.lastSend.Load().(sendMailRequest)
	if !ok {
		t.Fatal("sendMail was not called")
	}
	if req.Message.Subject != "Research question" {
		t.Errorf("Subject: got %q", req.Message.Subject)
	}
	if req.Message.Body.ContentType != "text" {
		t.Errorf("ContentType: got %q, want text", req.Message.Body.ContentType)
	}
	if !strings.HasPrefix(req.Message.Body.Content, "Hello Professor,") {
		t.Errorf("Content: got %q", req.Message.Body.Content)
	}
	if len(req.Message.ToRecipients) != 1 || req.Message.ToRecipients[0].EmailAddress.Address != "prof@uic.edu" {
		t.Errorf("ToRecipients: got %+v", req.Message.ToRecipients)
	}
	if !req.SaveToSentItems {
		t.Error("SaveToSentItems should be true")
	}
}

func TestSend_TokenIsCached(t *testing.T) {
	t.Parallel()

	gs := newGraphServer(t, http.StatusAccepted, "")
	p := gs.provider()
	for i := 0; i < 2; i++ {
		if err := p.Send(context.Background(), testMessage()); err != nil {
			t.Fatalf("Send() #%d error: %v", i+1, err)
		}
	}
	if got := gs.tokenCalls.Load(); got != 1 {
		t.Errorf("token calls: got %d, want 1", got)
	}
	if got := gs.sendCalls.Load(); got != 2 {
		t.Errorf("send calls: got %d, want 2", got)
	}
}

func TestSend_ErrorIsSingleAttempt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"graph error body", http.StatusForbidden, `{"error":{"code":"ErrorAccessDenied","message":"Access is denied."}}`, "ErrorAccessDenied"},
		{"plain body", http.StatusServiceUnavailable, "unavailable", "HTTP 503"},
		{"unauthorized", http.StatusUnauthorized, "", "HTTP 401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gs := newGraphServer(t, tt.status, tt.body)
			err := gs.provider().Send(context.Background(), testMessage())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Send() error = %v, want containing %q", err, tt.wantErr)
			}
			if got := gs.sendCalls.Load(); got != 1 {
				t.Errorf("send calls: got %d, want 1", got)
			}
		})
	}
}

func TestSend_TokenFailure(t *testing.T) {
	t.Parallel()

	gs := newGraphServer(t, http.StatusAccepted, "")
	gs.tokenFail.Store(true)

	if err := gs.provider().Send(context.Background(), testMessage()); err == nil {
		t.Fatal("Send() expected error when the token endpoint rejects the client")
	}
	if got := gs.sendCalls.Load(); got != 0 {
		t.Errorf("send calls: got %d, want 0", got)
	}
}

func TestSend_NoRecipient(t *testing.T) {
	t.Parallel()

	gs := newGraphServer(t, http.StatusAccepted, "")
	msg := testMessage()
	msg.To = nil

	if err := gs.provider().Send(context.Background(), msg); !errors.Is(err, provider.ErrNoRecipient) {
		t.Fatalf("Send() error = %v, want ErrNoRecipient", err)
	}
	if got := gs.tokenCalls.Load(); got != 0 {
		t.Errorf("token calls: got %d, want 0", got)
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New(Config{}).Name(); got != "graph" {
		t.Errorf("Name() = %q, want graph", got)
	}
}
