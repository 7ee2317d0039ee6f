package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/db"
	"github.com/sealdrop/sealdrop/internal/repository"
	"github.com/sealdrop/sealdrop/internal/service"
)

var handlerDBSeq atomic.Int64

func newHandlerDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:hdl%d?mode=memory&cache=shared", handlerDBSeq.Add(1))
	database, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

// memStore is a map-backed blob store for handler tests.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Load(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

// nullResolver never resolves a country, like production when the lookup
// endpoint is down.
type nullResolver struct{}

func (nullResolver) Country(context.Context, string) string { return "" }

type handlerEnv struct {
	files    *service.FileService
	sessions *service.SessionService
	auth     *service.AuthService
	handler  *FileHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	database := newHandlerDB(t)
	store := newMemStore()

	userRepo := repository.NewUserRepository(database)
	fileRepo := repository.NewFileRepository(database)
	shardRepo := repository.NewShardRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	requestRepo := repository.NewAccessRequestRepository(database)
	logRepo := repository.NewAccessLogRepository(database)

	audit := service.NewAuditService(logRepo)
	shards := service.NewShardService(shardRepo, 3)
	policy := service.NewPolicyService(requestRepo)
	sessions := service.NewSessionService(sessionRepo, fileRepo, audit, 30*time.Second)
	files := service.NewFileService(fileRepo, userRepo, shards, store, policy, sessions, audit)
	auth := service.NewAuthService(userRepo, "test-secret", time.Hour, false)

	return &handlerEnv{
		files:    files,
		sessions: sessions,
		auth:     auth,
		handler:  NewFileHandler(files, sessions, audit, nullResolver{}),
	}
}

func TestContentPasswordRidesInHeader(t *testing.T) {
	env := newHandlerEnv(t)

	owner, err := env.auth.Register("owner@example.com", "correct-horse-battery")
	require.NoError(t, err)

	plaintext := []byte("the protected document")
	file, err := env.files.Upload(context.Background(), owner.ID, "doc.txt", "text/plain",
		plaintext, service.SettingsInput{Password: "open-sesame"})
	require.NoError(t, err)

	get := func(password string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/files/"+file.ID+"/content?email=viewer%40example.com", nil)
		r.SetPathValue("id", file.ID)
		if password != "" {
			r.Header.Set("X-View-Password", password)
		}
		rec := httptest.NewRecorder()
		env.handler.Content(rec, r)
		return rec
	}

	// No password, no content.
	rec := get("")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var denial map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &denial))
	assert.Equal(t, service.DenyBadPassword, denial["reason"])

	// The password travels in a header, never in the URL, so it stays out
	// of proxy and access logs.
	rec = get("open-sesame")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plaintext, rec.Body.Bytes())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Session-Id"))
	assert.Equal(t, "30000", rec.Header().Get("X-Heartbeat-Interval-Ms"))
}
