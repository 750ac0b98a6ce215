package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(persist bool) Record {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return Record{
		Credential: Credential{
			SubjectID:    "user-1",
			Email:        "qa@example.com",
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			IssuedAt:     issued,
			ExpiresAt:    issued.Add(time.Hour),
		},
		Persist: persist,
	}
}

func TestFileStoreSaveLoadPersistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	require.NoError(t, store.Save(testRecord(true)))

	// A fresh store at the same path simulates a process restart.
	restarted := NewFileStore(path, slog.Default())
	rec := restarted.Load()
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.Credential.SubjectID)
	assert.Equal(t, "access-token", rec.Credential.AccessToken)
	assert.True(t, rec.Persist)
}

func TestFileStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	require.NoError(t, store.Save(testRecord(true)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestFileStoreNonPersistentStaysInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	require.NoError(t, store.Save(testRecord(false)))

	// Visible within this process.
	rec := store.Load()
	require.NotNil(t, rec)
	assert.False(t, rec.Persist)

	// Nothing on disk, so a restart finds nothing.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	restarted := NewFileStore(path, slog.Default())
	assert.Nil(t, restarted.Load())
}

func TestFileStoreNonPersistentSaveRemovesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	require.NoError(t, store.Save(testRecord(true)))
	require.NoError(t, store.Save(testRecord(false)))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), slog.Default())
	assert.Nil(t, store.Load())
}

func TestFileStoreLoadMalformedTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path, slog.Default())
	assert.Nil(t, store.Load())

	// The malformed file is left in place for inspection.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreLoadMissingCredentialTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"persist": true}`), 0o600))

	store := NewFileStore(path, slog.Default())
	assert.Nil(t, store.Load())
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	first := testRecord(true)
	require.NoError(t, store.Save(first))

	second := testRecord(true)
	second.Credential.AccessToken = "newer-token"
	require.NoError(t, store.Save(second))

	rec := store.Load()
	require.NotNil(t, rec)
	assert.Equal(t, "newer-token", rec.Credential.AccessToken)
}

func TestFileStoreClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, slog.Default())

	require.NoError(t, store.Save(testRecord(true)))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	assert.Nil(t, store.Load())
}

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future expiry", now.Add(time.Hour), false},
		{"past expiry", now.Add(-time.Second), true},
		{"expiring exactly now", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credential{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, c.Expired(now))
		})
	}
}

func TestNewCredentialComputesExpiryAtIssuance(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ws := WireSession{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		TokenType:    "bearer",
	}

	c := NewCredential("u1", "qa@example.com", ws, issued)

	assert.Equal(t, issued, c.IssuedAt)
	assert.Equal(t, issued.Add(time.Hour), c.ExpiresAt)
	assert.Equal(t, "bearer", c.TokenType)
}
