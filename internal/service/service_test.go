package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/db"
	"github.com/sealdrop/sealdrop/internal/repository"
)

var testDBSeq atomic.Int64

// newTestDB opens a fresh named in-memory database with the real
// migrations applied. Shared cache keeps the database alive across pool
// connections; a single open connection serializes sqlite writers.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))
	database, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

// fakeStore is an in-memory blob store. failDelete simulates an
// unreachable backend on the kill path.
type fakeStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (f *fakeStore) Save(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) Load(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return fmt.Errorf("storage unreachable")
	}
	delete(f.blobs, path)
	return nil
}

func (f *fakeStore) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[path]
	return ok
}

// testEnv wires the full service stack against a real database and a fake
// blob store, the same shape app.New builds in production.
type testEnv struct {
	store *fakeStore

	userRepo    repository.UserRepository
	fileRepo    repository.FileRepository
	shardRepo   repository.ShardRepository
	sessionRepo repository.SessionRepository
	requestRepo repository.AccessRequestRepository
	logRepo     repository.AccessLogRepository

	auth       *AuthService
	files      *FileService
	shards     *ShardService
	policy     *PolicyService
	sessions   *SessionService
	revocation *RevocationService
	requests   *AccessRequestService
	audit      *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := newTestDB(t)
	store := newFakeStore()

	env := &testEnv{
		store:       store,
		userRepo:    repository.NewUserRepository(database),
		fileRepo:    repository.NewFileRepository(database),
		shardRepo:   repository.NewShardRepository(database),
		sessionRepo: repository.NewSessionRepository(database),
		requestRepo: repository.NewAccessRequestRepository(database),
		logRepo:     repository.NewAccessLogRepository(database),
	}

	email := NewEmailService("", "test@sealdrop.dev", "Sealdrop", true)
	env.audit = NewAuditService(env.logRepo)
	env.shards = NewShardService(env.shardRepo, 3)
	env.policy = NewPolicyService(env.requestRepo)
	env.sessions = NewSessionService(env.sessionRepo, env.fileRepo, env.audit, 30*time.Second)
	env.files = NewFileService(env.fileRepo, env.userRepo, env.shards, store, env.policy, env.sessions, env.audit)
	env.revocation = NewRevocationService(env.fileRepo, env.requestRepo, env.userRepo, env.shards, env.sessions, store, env.audit, email)
	env.requests = NewAccessRequestService(env.requestRepo, env.fileRepo, env.userRepo, env.audit, email)
	env.auth = NewAuthService(env.userRepo, "test-secret", time.Hour, false)

	return env
}

func (env *testEnv) createOwner(t *testing.T, email string) string {
	t.Helper()
	user, err := env.auth.Register(email, "correct-horse-battery")
	require.NoError(t, err)
	return user.ID
}

func (env *testEnv) upload(t *testing.T, ownerID string, data []byte, settings SettingsInput) string {
	t.Helper()
	file, err := env.files.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data, settings)
	require.NoError(t, err)
	return file.ID
}
