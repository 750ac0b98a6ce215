package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/ziyad188/sentinel-bot-webwic/internal/api"
	"github.com/ziyad188/sentinel-bot-webwic/internal/session"
)

// Authenticator handles the unauthenticated half of the auth routes (signup,
// login) plus logout. It establishes and destroys the session record the
// executor runs on.
type Authenticator struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewAuthenticator creates an Authenticator against the given base URL.
func NewAuthenticator(baseURL string, httpClient *http.Client, store session.Store, logger *slog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Authenticator{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
	}
}

// SetClock overrides the clock used for credential issuance timestamps.
func (a *Authenticator) SetClock(clock clockwork.Clock) {
	a.clock = clock
}

// Identity identifies the authenticated subject.
type Identity struct {
	UserID string
	Email  string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID  string               `json:"user_id"`
	Email   string               `json:"email"`
	Session *session.WireSession `json:"session"`
}

// SignupParams carries the signup form.
type SignupParams struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	FullName string         `json:"full_name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type signupResponse struct {
	UserID               string               `json:"user_id"`
	Email                string               `json:"email"`
	ConfirmationRequired bool                 `json:"confirmation_required"`
	Session              *session.WireSession `json:"session"`
}

// Login authenticates with email and password and stores the resulting
// session record. persist controls whether the session survives process
// restart.
func (a *Authenticator) Login(ctx context.Context, email, password string, persist bool) (*Identity, error) {
	var ar authResponse

	err := a.post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &ar)
	if err != nil {
		return nil, fmt.Errorf("sentinel: login: %w", err)
	}

	if ar.Session == nil {
		return nil, fmt.Errorf("sentinel: login response missing session")
	}

	cred := session.NewCredential(ar.UserID, ar.Email, *ar.Session, a.clock.Now())

	if err := a.store.Save(session.Record{Credential: cred, Persist: persist}); err != nil {
		return nil, fmt.Errorf("sentinel: storing session: %w", err)
	}

	a.logger.Info("logged in",
		slog.String("user_id", ar.UserID),
		slog.Time("expires_at", cred.ExpiresAt),
		slog.Bool("persist", persist),
	)

	return &Identity{UserID: ar.UserID, Email: ar.Email}, nil
}

// Signup registers a new account. When the backend requires email
// confirmation no session is issued and ErrConfirmationRequired is returned
// alongside the identity; otherwise the session is stored like a login.
func (a *Authenticator) Signup(ctx context.Context, p SignupParams, persist bool) (*Identity, error) {
	var sr signupResponse

	err := a.post(ctx, "/auth/signup", p, &sr)
	if err != nil {
		return nil, fmt.Errorf("sentinel: signup: %w", err)
	}

	ident := &Identity{UserID: sr.UserID, Email: sr.Email}

	if sr.ConfirmationRequired || sr.Session == nil {
		return ident, ErrConfirmationRequired
	}

	cred := session.NewCredential(sr.UserID, sr.Email, *sr.Session, a.clock.Now())

	if err := a.store.Save(session.Record{Credential: cred, Persist: persist}); err != nil {
		return nil, fmt.Errorf("sentinel: storing session: %w", err)
	}

	a.logger.Info("signed up",
		slog.String("user_id", sr.UserID),
		slog.Bool("persist", persist),
	)

	return ident, nil
}

// ErrConfirmationRequired means signup succeeded but the account must be
// confirmed by email before a session can be issued.
var ErrConfirmationRequired = fmt.Errorf("sentinel: email confirmation required")

// Logout revokes the session server-side and clears the local record. The
// local record is cleared even when the server call fails — a lingering
// local session after an explicit logout is worse than a stray server-side
// one.
func (a *Authenticator) Logout(ctx context.Context) error {
	rec := a.store.Load()

	defer func() {
		if err := a.store.Clear(); err != nil {
			a.logger.Warn("clearing session on logout", slog.String("error", err.Error()))
		}
	}()

	if rec == nil {
		a.logger.Info("logout: no session to revoke")
		return nil
	}

	body := struct {
		RefreshToken string `json:"refresh_token,omitempty"`
	}{RefreshToken: rec.Credential.RefreshToken}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sentinel: encoding logout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/logout", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("sentinel: creating logout request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", api.AuthorizationValue(rec.Credential))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sentinel: logout call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sentinel: logout rejected: HTTP %d: %s", resp.StatusCode, msg)
	}

	a.logger.Info("logged out", slog.String("user_id", rec.Credential.SubjectID))

	return nil
}

// post issues an unauthenticated JSON POST and decodes the response.
func (a *Authenticator) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
