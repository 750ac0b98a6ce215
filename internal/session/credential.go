// Package session manages the authenticated session lifecycle: the
// credential record, its persistence, and silent renewal against the
// dashboard's refresh endpoint.
package session

import (
	"time"
)

// WireSession mirrors the session block the backend returns from login,
// signup, and refresh responses.
type WireSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Credential is the access/refresh token pair plus expiry metadata for one
// authenticated subject. Values are immutable — renewal constructs a new
// Credential rather than mutating an existing one.
type Credential struct {
	SubjectID    string    `json:"subject_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewCredential builds a Credential from a wire session. ExpiresAt is
// computed once here, at issuance, as issuedAt + expires_in.
func NewCredential(subjectID, email string, ws WireSession, issuedAt time.Time) Credential {
	return Credential{
		SubjectID:    subjectID,
		Email:        email,
		AccessToken:  ws.AccessToken,
		RefreshToken: ws.RefreshToken,
		TokenType:    ws.TokenType,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(time.Duration(ws.ExpiresIn) * time.Second),
	}
}

// Expired reports whether the credential is unusable at the given instant.
// A credential expiring exactly now counts as expired.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Record pairs a credential with its persistence intent. Persist controls
// whether the record survives process restart or lives only for the current
// process (the "remember me" distinction).
type Record struct {
	Credential Credential `json:"credential"`
	Persist    bool       `json:"persist"`
}
