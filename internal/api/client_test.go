package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziyad188/sentinel-bot-webwic/internal/session"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory session.Store recording Clear calls.
type memStore struct {
	mu     sync.Mutex
	rec    *session.Record
	clears int
}

func (s *memStore) Load() *session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil
	}

	rec := *s.rec

	return &rec
}

func (s *memStore) Save(rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec

	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	s.clears++

	return nil
}

func (s *memStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clears
}

// fakeRenewer is a Renewer returning a scripted credential or error.
type fakeRenewer struct {
	cred  session.Credential
	err   error
	calls atomic.Int32
}

func (f *fakeRenewer) Refresh(_ context.Context, _ session.Credential, _ bool) (session.Credential, error) {
	f.calls.Add(1)

	if f.err != nil {
		return session.Credential{}, f.err
	}

	return f.cred, nil
}

func validCredential(token string) session.Credential {
	return session.Credential{
		SubjectID:    "user-1",
		AccessToken:  token,
		RefreshToken: "refresh",
		TokenType:    "bearer",
		IssuedAt:     testNow.Add(-time.Minute),
		ExpiresAt:    testNow.Add(time.Hour),
	}
}

func expiredCredential(token string) session.Credential {
	c := validCredential(token)
	c.ExpiresAt = testNow.Add(-time.Second)

	return c
}

type clientEnv struct {
	store    *memStore
	renewer  *fakeRenewer
	client   *Client
	notified *atomic.Int32
}

func newTestClient(t *testing.T, url string, rec *session.Record, renewer *fakeRenewer) *clientEnv {
	t.Helper()

	store := &memStore{rec: rec}

	var notified atomic.Int32

	c := NewClient(url, http.DefaultClient, store, renewer, func() { notified.Add(1) }, slog.Default())
	c.SetClock(clockwork.NewFakeClockAt(testNow))

	return &clientEnv{store: store, renewer: renewer, client: c, notified: &notified}
}

func TestDoValidCredentialNeverRenews(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok-1"), Persist: true},
		&fakeRenewer{})

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, int32(0), env.renewer.calls.Load())
	assert.Equal(t, int32(0), env.notified.Load())
}

func TestDoNoSessionRecord(t *testing.T) {
	var serverCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		serverCalls.Add(1)
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL, nil, &fakeRenewer{})

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	assert.ErrorIs(t, err, ErrSessionExpired)

	// No network call was made; the user was notified exactly once.
	assert.Equal(t, int32(0), serverCalls.Load())
	assert.Equal(t, int32(1), env.notified.Load())
	assert.Equal(t, 1, env.store.clearCount())
}

func TestDoExpiredCredentialRenewsOnceBeforeCall(t *testing.T) {
	var (
		gotAuth     string
		serverCalls atomic.Int32
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverCalls.Add(1)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: expiredCredential("stale"), Persist: true},
		&fakeRenewer{cred: validCredential("fresh")})

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	require.NoError(t, err)
	resp.Body.Close()

	// One renewal, then one call carrying the new token.
	assert.Equal(t, int32(1), env.renewer.calls.Load())
	assert.Equal(t, int32(1), serverCalls.Load())
	assert.Equal(t, "Bearer fresh", gotAuth)
}

func TestDoExpiredCredentialRenewalFails(t *testing.T) {
	var serverCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		serverCalls.Add(1)
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: expiredCredential("stale"), Persist: true},
		&fakeRenewer{err: session.ErrRenewalFailed})

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int32(0), serverCalls.Load())
	assert.Equal(t, int32(1), env.notified.Load())
	assert.Nil(t, env.store.Load())
}

func TestDoReactive401RenewsAndRetriesOnce(t *testing.T) {
	var serverCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if serverCalls.Add(1) == 1 {
			assert.Equal(t, "Bearer rejected", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("rejected"), Persist: true},
		&fakeRenewer{cred: validCredential("fresh")})

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), serverCalls.Load())
	assert.Equal(t, int32(1), env.renewer.calls.Load())
	assert.Equal(t, int32(0), env.notified.Load())
}

func TestDoSecond401IsTerminal(t *testing.T) {
	var serverCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		serverCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{cred: validCredential("still-rejected")})

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	assert.ErrorIs(t, err, ErrSessionExpired)

	// One retry only, one renewal, one notification, store cleared.
	assert.Equal(t, int32(2), serverCalls.Load())
	assert.Equal(t, int32(1), env.renewer.calls.Load())
	assert.Equal(t, int32(1), env.notified.Load())
	assert.Nil(t, env.store.Load())
}

func TestDoReactive401RenewalFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{err: session.ErrRenewalFailed})

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/runs"})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), env.notified.Load())
}

func TestDoSchemeNormalization(t *testing.T) {
	tests := []struct {
		tokenType string
		want      string
	}{
		{"bearer", "Bearer tok"},
		{"Bearer", "Bearer tok"},
		{"mAC", "MAC tok"},
		{"", "Bearer tok"},
	}

	for _, tt := range tests {
		t.Run("tokenType="+tt.tokenType, func(t *testing.T) {
			var gotAuth string

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			cred := validCredential("tok")
			cred.TokenType = tt.tokenType

			env := newTestClient(t, srv.URL, &session.Record{Credential: cred, Persist: true}, &fakeRenewer{})

			resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.want, gotAuth)
		})
	}
}

func TestDoHeaderMerging(t *testing.T) {
	var got http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer forged")
	hdr.Set("X-Custom", "kept")

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", Header: hdr})
	require.NoError(t, err)
	resp.Body.Close()

	// Caller headers are merged, but Authorization cannot be overridden.
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "kept", got.Get("X-Custom"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestDoCallerMayOverrideAccept(t *testing.T) {
	var got string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	hdr := http.Header{}
	hdr.Set("Accept", "text/csv")

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", Header: hdr})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "text/csv", got)
}

func TestDoTransportErrorNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refused connection

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	// Transport failures never renew or escalate.
	assert.Equal(t, int32(0), env.renewer.calls.Load())
	assert.Equal(t, int32(0), env.notified.Load())
}

func TestDoServerErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("request-id", "req-42")
				http.Error(w, `{"detail": "nope"}`, tt.status)
			}))
			defer srv.Close()

			env := newTestClient(t, srv.URL,
				&session.Record{Credential: validCredential("tok"), Persist: true},
				&fakeRenewer{})

			_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "req-42", apiErr.RequestID)

			// Server errors are not session loss.
			assert.Equal(t, int32(0), env.notified.Load())
		})
	}
}

func TestDoJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 7})
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	var out struct {
		Total int `json:"total"`
	}

	err := env.client.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Total)
}

func TestDoJSONMalformedBodyMapsToServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>surprise</html>"))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	var out map[string]any

	err := env.client.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, &out)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Contains(t, apiErr.Message, "decoding response body")
}

func TestNotificationLatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	env := newTestClient(t, srv.URL, nil, &fakeRenewer{})

	ctx := context.Background()
	req := Request{Method: http.MethodGet, Path: "/x"}

	// Repeated terminal outcomes notify once, not once per call.
	_, err := env.client.Do(ctx, req)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = env.client.Do(ctx, req)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), env.notified.Load())

	// A new session re-arms the latch for the next loss.
	env.client.SessionEstablished()

	_, err = env.client.Do(ctx, req)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(2), env.notified.Load())
}

func TestDoContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := env.client.Do(ctx, Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsTransport(err))
}

func TestDoJSONNilOutDiscardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ignored": true}`))
	}))
	defer srv.Close()

	env := newTestClient(t, srv.URL,
		&session.Record{Credential: validCredential("tok"), Persist: true},
		&fakeRenewer{})

	err := env.client.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
	assert.NoError(t, err)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{StatusCode: 404, RequestID: "abc", Message: "gone", Err: ErrNotFound}
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "abc")
	require.True(t, errors.Is(err, ErrNotFound))
}
