package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ziyad188/sentinel-bot-webwic/internal/session"
)

const userAgent = "sentinelctl/0.1"

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 4096

// Renewer renews a credential that the executor found expired or rejected.
// Defined at the consumer per Go convention "accept interfaces, return
// structs"; session.Refresher is the real implementation.
type Renewer interface {
	Refresh(ctx context.Context, current session.Credential, persist bool) (session.Credential, error)
}

// Request describes one logical call against the dashboard API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any // JSON-encoded when non-nil
}

// Client executes authenticated requests. It is the single shared executor
// every consumer goes through — the session load, proactive expiry check,
// header construction, and reactive 401 handling live here and nowhere else.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	renewer    Renewer
	clock      clockwork.Clock
	logger     *slog.Logger

	// onSessionExpired is invoked exactly once per session loss, guarded by
	// notified. SessionEstablished re-arms the latch after a new login.
	onSessionExpired func()
	notified         atomic.Bool
}

// NewClient creates an executor for the given base URL. onSessionExpired may
// be nil; when set, it is called once per terminal session loss (the
// redirect/notification hook).
func NewClient(
	baseURL string,
	httpClient *http.Client,
	store session.Store,
	renewer Renewer,
	onSessionExpired func(),
	logger *slog.Logger,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:          baseURL,
		httpClient:       httpClient,
		store:            store,
		renewer:          renewer,
		clock:            clockwork.NewRealClock(),
		logger:           logger,
		onSessionExpired: onSessionExpired,
	}
}

// SetClock overrides the clock used for the proactive expiry check.
// Tests use this with a fake clock.
func (c *Client) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// SessionEstablished re-arms the session-expired notification after a new
// session has been stored (login/signup). Without this, a client that
// already escalated once would stay silent for the next session's loss.
func (c *Client) SessionEstablished() {
	c.notified.Store(false)
}

// Do executes one authenticated request:
//
//  1. Load the session record; absent means expired — no network call.
//  2. Proactively renew a credential whose expiry has passed.
//  3. Attach Authorization (title-cased scheme) and Accept headers.
//  4. Issue the call.
//  5. On 401, renew once and retry once; a second 401 is terminal.
//
// Terminal session loss clears the store and fires the expiry handler
// exactly once. The caller owns the response body on success.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	rec := c.store.Load()
	if rec == nil {
		c.logger.Info("no session record, refusing request",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
		)
		c.escalate()

		return nil, ErrSessionExpired
	}

	cred := rec.Credential

	if cred.Expired(c.clock.Now()) {
		c.logger.Info("credential expired, renewing before request",
			slog.String("path", req.Path),
			slog.Time("expired_at", cred.ExpiresAt),
		)

		renewed, err := c.renewer.Refresh(ctx, cred, rec.Persist)
		if err != nil {
			c.escalate()
			return nil, fmt.Errorf("renewing expired credential: %w", ErrSessionExpired)
		}

		cred = renewed
	}

	resp, err := c.doOnce(ctx, req, cred)
	if err != nil {
		return nil, c.transportFailure(ctx, req, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Reactive path: the server rejected a token we believed valid
		// (clock skew, server-side revocation). One renewal, one retry.
		drainAndClose(resp)

		c.logger.Info("request rejected with 401, renewing and retrying once",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
		)

		renewed, rerr := c.renewer.Refresh(ctx, cred, rec.Persist)
		if rerr != nil {
			c.escalate()
			return nil, fmt.Errorf("renewing rejected credential: %w", ErrSessionExpired)
		}

		resp, err = c.doOnce(ctx, req, renewed)
		if err != nil {
			return nil, c.transportFailure(ctx, req, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			drainAndClose(resp)
			c.logger.Warn("401 persisted after renewal, session is terminal",
				slog.String("method", req.Method),
				slog.String("path", req.Path),
			)
			c.escalate()

			return nil, ErrSessionExpired
		}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	return nil, c.errorFromResponse(req, resp)
}

// DoJSON executes the request and decodes the response body into out.
// A malformed body maps to a server-class *APIError rather than escaping as
// a raw decode error. Pass nil out to discard the body.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    fmt.Sprintf("decoding response body: %v", err),
			Err:        ErrServerError,
		}
	}

	return nil
}

// doOnce issues a single HTTP call with the given credential (no retry).
func (c *Client) doOnce(ctx context.Context, req Request, cred session.Credential) (*http.Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader

	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	hr.Header.Set("Accept", "application/json")

	for k, vs := range req.Header {
		hr.Header[http.CanonicalHeaderKey(k)] = vs
	}

	if req.Body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	hr.Header.Set("User-Agent", userAgent)
	hr.Header.Set("X-Request-ID", uuid.NewString())

	// Authorization goes last so caller-supplied headers can never
	// override it.
	hr.Header.Set("Authorization", AuthorizationValue(cred))

	return c.httpClient.Do(hr)
}

// AuthorizationValue builds the Authorization header value: the token type
// with its first letter upper-cased (remainder unchanged), a single space,
// and the access token. Some servers are case-sensitive on the scheme name
// and the backend hands out "bearer" — the exact normalization matters.
func AuthorizationValue(cred session.Credential) string {
	return normalizeScheme(cred.TokenType) + " " + cred.AccessToken
}

func normalizeScheme(tokenType string) string {
	if tokenType == "" {
		return "Bearer"
	}

	r, size := utf8.DecodeRuneInString(tokenType)

	return string(unicode.ToUpper(r)) + tokenType[size:]
}

// transportFailure wraps a network-level error. Context cancellation is
// reported as-is so callers can distinguish teardown from real failures.
func (c *Client) transportFailure(ctx context.Context, req Request, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("api: request canceled: %w", ctx.Err())
	}

	c.logger.Warn("transport failure",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("error", err.Error()),
	)

	return &TransportError{Err: err}
}

// errorFromResponse converts a non-2xx, non-401 response into an *APIError.
// Consumes and closes the body.
func (c *Client) errorFromResponse(req Request, resp *http.Response) error {
	errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	c.logger.Warn("request failed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
	)

	return &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// escalate handles terminal session loss: clear the store (idempotent) and
// fire the notification hook, at most once until a new session is
// established.
func (c *Client) escalate() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clearing session store", slog.String("error", err.Error()))
	}

	if c.notified.CompareAndSwap(false, true) && c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
