package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"seedrio/pkg/logger"
)

// mockOAuth serves /device and /token and flips to approved on demand.
type mockOAuth struct {
	mu       sync.Mutex
	approved bool
	token    string
	polls    int
}

func (o *mockOAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{
			"device_code": "dev-123",
			"user_code": "ABCD-EFGH",
			"verification_uri": "https://www.seedr.cc/devices",
			"expires_in": 900,
			"interval": 5
		}`)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.polls++
		if !o.approved {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "authorization_pending"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token": %q, "token_type": "bearer"}`, o.token)
	})
	return mux
}

func newTestManager(t *testing.T, o *mockOAuth) (*Manager, func()) {
	t.Helper()
	logger.Init("DEBUG")
	server := httptest.NewServer(o.handler())
	m := NewManager(server.URL, "seedrio-test", 30*time.Minute, nil)
	return m, server.Close
}

func TestDeviceFlowPendingUntilApproved(t *testing.T) {
	o := &mockOAuth{token: "tok-xyz"}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	session, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if session.DeviceCode != "dev-123" || session.UserCode != "ABCD-EFGH" {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.Authorized {
		t.Fatal("new session must start pending")
	}

	// Polling before approval returns pending every time
	for i := 0; i < 3; i++ {
		res, err := m.Poll(context.Background(), session.DeviceCode)
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if res.Status != "pending" {
			t.Fatalf("expected pending, got %s", res.Status)
		}
	}

	o.mu.Lock()
	o.approved = true
	o.mu.Unlock()

	res, err := m.Poll(context.Background(), session.DeviceCode)
	if err != nil {
		t.Fatalf("Poll after approval failed: %v", err)
	}
	if res.Status != "authorized" || res.AccessToken != "tok-xyz" {
		t.Fatalf("expected authorized token, got %+v", res)
	}

	if !m.Authorized() {
		t.Error("manager should report authorized after exchange")
	}
	cred, ok := m.Credential()
	if !ok || cred.Token != "tok-xyz" {
		t.Errorf("expected device token credential, got %+v ok=%v", cred, ok)
	}
}

func TestPollIdempotentAfterAuthorization(t *testing.T) {
	o := &mockOAuth{token: "tok-once", approved: true}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	session, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first, err := m.Poll(context.Background(), session.DeviceCode)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	o.mu.Lock()
	remoteCalls := o.polls
	o.mu.Unlock()

	// Subsequent polls return the same token without hitting the remote again
	for i := 0; i < 3; i++ {
		res, err := m.Poll(context.Background(), session.DeviceCode)
		if err != nil {
			t.Fatalf("repeat Poll failed: %v", err)
		}
		if res.Status != "authorized" || res.AccessToken != first.AccessToken {
			t.Fatalf("expected stable authorized result, got %+v", res)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.polls != remoteCalls {
		t.Errorf("authorized poll should not re-hit the token endpoint (calls %d -> %d)", remoteCalls, o.polls)
	}
}

func TestConcurrentPollsShareOneToken(t *testing.T) {
	o := &mockOAuth{token: "tok-race", approved: true}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	session, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const pollers = 8
	results := make(chan *PollResult, pollers)
	errs := make(chan error, pollers)

	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Poll(context.Background(), session.DeviceCode)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Poll failed: %v", err)
	}
	for res := range results {
		if res.Status != "authorized" || res.AccessToken != "tok-race" {
			t.Errorf("unexpected poll result %+v", res)
		}
	}

	cred, ok := m.Credential()
	if !ok || cred.Token != "tok-race" {
		t.Errorf("expected settled credential, got %+v ok=%v", cred, ok)
	}
}

func TestStartReturnsDetachedSession(t *testing.T) {
	o := &mockOAuth{token: "tok-copy", approved: true}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	session, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := m.Poll(context.Background(), session.DeviceCode); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	// The authorization transition mutates the stored session, not the copy
	// handed to the caller (which handlers JSON-encode unguarded).
	if session.Authorized {
		t.Error("caller's session copy must not be mutated by Poll")
	}

	// Scribbling on the copy must not corrupt the store either
	session.Authorized = false
	session.Token = "garbage"
	res, err := m.Poll(context.Background(), session.DeviceCode)
	if err != nil {
		t.Fatalf("Poll after scribble failed: %v", err)
	}
	if res.Status != "authorized" || res.AccessToken != "tok-copy" {
		t.Errorf("stored session corrupted: %+v", res)
	}
}

func TestPollUnknownDeviceCode(t *testing.T) {
	o := &mockOAuth{}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	_, err := m.Poll(context.Background(), "no-such-code")
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestCleanupPrunesExpiredSessions(t *testing.T) {
	o := &mockOAuth{}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	session, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Age the session past its advertised expiry
	m.mu.Lock()
	m.sessions[session.DeviceCode].CreatedAt = time.Now().Add(-time.Duration(session.ExpiresIn+60) * time.Second)
	m.mu.Unlock()

	m.cleanup()

	_, err = m.Poll(context.Background(), session.DeviceCode)
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected pruned session to be unknown, got %v", err)
	}
}

func TestCredentialPrecedence(t *testing.T) {
	o := &mockOAuth{}
	m, closeFn := newTestManager(t, o)
	defer closeFn()

	if m.Authorized() {
		t.Fatal("fresh manager must not be authorized")
	}

	m.UseCookie("RSESS=abc")
	cred, ok := m.Credential()
	if !ok || cred.Cookie != "RSESS=abc" {
		t.Fatalf("expected cookie credential, got %+v", cred)
	}

	m.UseStaticToken("pasted-token")
	cred, ok = m.Credential()
	if !ok || cred.Token != "pasted-token" {
		t.Fatalf("pasted token should win over cookie, got %+v", cred)
	}
}
