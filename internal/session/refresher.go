package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// refreshPath is the backend route that exchanges a refresh token for a
// new session.
const refreshPath = "/auth/refresh"

// ErrRenewalFailed means the refresh token was rejected or the renewal call
// could not complete. The credential cannot be salvaged — callers must treat
// this as terminal and require a fresh login. Renewal is never retried.
var ErrRenewalFailed = errors.New("session: renewal failed")

// Refresher exchanges a refresh token for a new credential. Each invocation
// makes at most one renewal attempt; concurrent invocations holding the same
// refresh token are coalesced so only one renewal call reaches the server.
type Refresher struct {
	baseURL    string
	httpClient *http.Client
	store      Store
	clock      clockwork.Clock
	logger     *slog.Logger
	group      singleflight.Group
}

// NewRefresher creates a Refresher talking to the given base URL.
func NewRefresher(baseURL string, httpClient *http.Client, store Store, logger *slog.Logger) *Refresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
	}
}

// SetClock overrides the clock used for issuance timestamps. Tests use this
// with a fake clock; production code keeps the real one.
func (r *Refresher) SetClock(clock clockwork.Clock) {
	r.clock = clock
}

// refreshRequest and refreshResponse mirror the backend's refresh JSON.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	UserID  string      `json:"user_id"`
	Email   string      `json:"email"`
	Session WireSession `json:"session"`
}

// Refresh renews the given credential and saves the result. On success the
// new credential carries a fresh IssuedAt/ExpiresAt. On any failure it
// returns ErrRenewalFailed — at most one attempt is made, and a failed
// renewal is terminal for that credential.
//
// Concurrent calls for the same refresh token share a single renewal call
// and all receive its result.
func (r *Refresher) Refresh(ctx context.Context, current Credential, persist bool) (Credential, error) {
	v, err, shared := r.group.Do(current.RefreshToken, func() (any, error) {
		return r.refreshOnce(ctx, current, persist)
	})
	if err != nil {
		return Credential{}, err
	}

	if shared {
		r.logger.Debug("renewal coalesced with concurrent caller",
			slog.String("subject_id", current.SubjectID),
		)
	}

	cred, ok := v.(Credential)
	if !ok {
		return Credential{}, fmt.Errorf("%w: unexpected renewal result type", ErrRenewalFailed)
	}

	return cred, nil
}

func (r *Refresher) refreshOnce(ctx context.Context, current Credential, persist bool) (Credential, error) {
	r.logger.Info("renewing credential",
		slog.String("subject_id", current.SubjectID),
		slog.Time("expired_at", current.ExpiresAt),
	)

	body, err := json.Marshal(refreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return Credential{}, fmt.Errorf("%w: encoding request: %v", ErrRenewalFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: creating request: %v", ErrRenewalFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("renewal call failed", slog.String("error", err.Error()))
		return Credential{}, fmt.Errorf("%w: %v", ErrRenewalFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		r.logger.Warn("renewal rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("subject_id", current.SubjectID),
		)

		return Credential{}, fmt.Errorf("%w: HTTP %d: %s", ErrRenewalFailed, resp.StatusCode, msg)
	}

	var rr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return Credential{}, fmt.Errorf("%w: decoding response: %v", ErrRenewalFailed, err)
	}

	cred := NewCredential(rr.UserID, rr.Email, rr.Session, r.clock.Now())

	if err := r.store.Save(Record{Credential: cred, Persist: persist}); err != nil {
		return Credential{}, fmt.Errorf("%w: saving renewed credential: %v", ErrRenewalFailed, err)
	}

	r.logger.Info("credential renewed",
		slog.String("subject_id", cred.SubjectID),
		slog.Time("expires_at", cred.ExpiresAt),
		slog.Duration("ttl", cred.ExpiresAt.Sub(cred.IssuedAt)),
	)

	return cred, nil
}

// TTL reports the remaining lifetime of the credential at the given instant.
// Negative when already expired.
func (c Credential) TTL(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}
