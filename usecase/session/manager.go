package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/cache"
	"github.com/fastygo/sessionguard/repository"
	"github.com/fastygo/sessionguard/usecase"
)

const (
	DefaultRefreshWindow = 15 * 24 * time.Hour
	tokenBytes           = 20
)

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Config holds the sliding-expiry policy and local cache sizing.
type Config struct {
	// RefreshWindow is the trailing part of a session's life in which a
	// successful validation extends it.
	RefreshWindow time.Duration
	// MaxDuration is the lifetime granted on creation and on every refresh.
	MaxDuration time.Duration
	LocalCache  cache.Config
	Now         func() time.Time
}

// CookieWriter receives the raw token once a session has been minted.
type CookieWriter interface {
	SetSessionCookie(token string, expiresAt time.Time)
}

// Manager owns session identity and the three read tiers: the process-local
// LRU, the distributed cache and the credential store.
type Manager struct {
	sessions   repository.SessionRepository
	cache      repository.SessionCache
	local      *cache.LRU[string, domain.SessionWithUser]
	dispatcher usecase.Dispatcher
	outbox     usecase.EvictionOutbox
	logger     *zap.Logger

	refreshWindow time.Duration
	maxDuration   time.Duration
	now           func() time.Time
	refreshes     singleflight.Group

	// epoch advances on every invalidation. A read that started in an
	// older epoch may not repopulate the local tier.
	mu    sync.Mutex
	epoch uint64
}

func NewManager(
	sessions repository.SessionRepository,
	sessionCache repository.SessionCache,
	dispatcher usecase.Dispatcher,
	outbox usecase.EvictionOutbox,
	cfg Config,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = usecase.SyncDispatcher{}
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 2 * cfg.RefreshWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LocalCache.Now == nil {
		cfg.LocalCache.Now = cfg.Now
	}

	return &Manager{
		sessions:      sessions,
		cache:         sessionCache,
		local:         cache.NewLRU[string, domain.SessionWithUser](cfg.LocalCache),
		dispatcher:    dispatcher,
		outbox:        outbox,
		logger:        logger,
		refreshWindow: cfg.RefreshWindow,
		maxDuration:   cfg.MaxDuration,
		now:           cfg.Now,
	}
}

// GenerateToken returns a fresh cookie-safe bearer token.
func GenerateToken() string {
	buf := make([]byte, tokenBytes)
	_, _ = rand.Read(buf)
	return strings.ToLower(tokenEncoding.EncodeToString(buf))
}

// SessionID derives the storage identity of a token.
func SessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) expiryFrom(now time.Time) time.Time {
	return now.Add(m.maxDuration).UTC().Truncate(time.Microsecond)
}

// CreateSession persists a session for token without touching any cache.
func (m *Manager) CreateSession(ctx context.Context, token, userID string, metadata domain.SessionMetadata) (*domain.Session, error) {
	if token == "" || userID == "" {
		return nil, domain.ErrInvalidPayload
	}
	session := &domain.Session{
		ID:        SessionID(token),
		UserID:    userID,
		ExpiresAt: m.expiryFrom(m.now()),
	}
	if err := m.sessions.Create(ctx, session, metadata); err != nil {
		return nil, domain.StoreFailure(err)
	}
	return session, nil
}

// SetSession mints a token, stores the session, warms both caches and hands
// the token to cookies. A distributed cache failure does not fail sign-in.
func (m *Manager) SetSession(
	ctx context.Context,
	cookies CookieWriter,
	userID string,
	metadata domain.SessionMetadata,
	user *domain.User,
) (*domain.Session, error) {
	if user == nil {
		return nil, domain.ErrInvalidPayload
	}
	token := GenerateToken()
	session, err := m.CreateSession(ctx, token, userID, metadata)
	if err != nil {
		return nil, err
	}

	entry := domain.SessionWithUser{Session: *session, User: *user}
	if err := m.cache.Put(ctx, &entry); err != nil {
		m.logger.Warn("session cache write failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	m.local.Set(session.ID, entry)

	if cookies != nil {
		cookies.SetSessionCookie(token, session.ExpiresAt)
	}
	return session, nil
}

// Validate resolves a token to its live session and user. A void token
// yields domain.ErrSessionNotFound; only store failures surface otherwise.
func (m *Manager) Validate(ctx context.Context, token string) (*domain.SessionWithUser, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	id := SessionID(token)
	now := m.now()
	seen := m.currentEpoch()

	if entry, ok := m.local.Get(id); ok {
		return m.fromCache(id, entry, now, seen, false)
	}

	entry, err := m.cache.Get(ctx, id)
	switch {
	case err == nil:
		return m.fromCache(id, *entry, now, seen, true)
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		m.logger.Debug("session cache read failed", zap.String("session_id", id), zap.Error(err))
	}

	return m.fromStore(ctx, id, now, seen)
}

func (m *Manager) fromCache(id string, entry domain.SessionWithUser, now time.Time, seen uint64, warmLocal bool) (*domain.SessionWithUser, error) {
	if entry.Session.IsExpired(now) {
		m.local.Delete(id)
		m.dispatch("session.expire", func(ctx context.Context) error {
			return m.cleanupExpired(ctx, id)
		})
		return nil, domain.ErrSessionNotFound
	}

	if warmLocal {
		m.remember(id, entry, seen)
	}
	if entry.Session.NeedsRefresh(now, m.refreshWindow) {
		snapshot := entry
		m.dispatch("session.refresh", func(ctx context.Context) error {
			return m.refresh(ctx, snapshot, seen)
		})
	}
	return &entry, nil
}

func (m *Manager) fromStore(ctx context.Context, id string, now time.Time, seen uint64) (*domain.SessionWithUser, error) {
	entry, err := m.sessions.GetWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.StoreFailure(err)
	}

	if entry.Session.IsExpired(now) {
		if err := m.sessions.Delete(ctx, id); err != nil {
			m.logger.Warn("expired session cleanup failed", zap.String("session_id", id), zap.Error(err))
		}
		return nil, domain.ErrSessionNotFound
	}

	if entry.Session.NeedsRefresh(now, m.refreshWindow) {
		expiresAt := m.expiryFrom(now)
		if err := m.sessions.UpdateExpiry(ctx, id, expiresAt); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil, domain.ErrSessionNotFound
			}
			return nil, domain.StoreFailure(err)
		}
		entry.Session.ExpiresAt = expiresAt
	}

	snapshot := *entry
	m.dispatch("session.warm", func(ctx context.Context) error {
		return m.publish(ctx, snapshot, seen)
	})
	return entry, nil
}

// refresh extends a session seen in a cache tier. Concurrent refreshes of
// one id share a single store round trip. A session deleted in the
// meantime stays deleted.
func (m *Manager) refresh(ctx context.Context, entry domain.SessionWithUser, seen uint64) error {
	id := entry.Session.ID
	_, err, _ := m.refreshes.Do(id, func() (interface{}, error) {
		expiresAt := m.expiryFrom(m.now())
		if err := m.sessions.UpdateExpiry(ctx, id, expiresAt); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				m.fence(id)
				return nil, nil
			}
			return nil, err
		}
		if expiresAt.After(entry.Session.ExpiresAt) {
			entry.Session.ExpiresAt = expiresAt
		}
		return nil, m.publish(ctx, entry, seen)
	})
	return err
}

// publish writes entry to both cache tiers and then confirms the row still
// exists. An invalidation that raced the write has already deleted the row,
// so the entry is evicted again instead of outliving the sign-out.
func (m *Manager) publish(ctx context.Context, entry domain.SessionWithUser, seen uint64) error {
	id := entry.Session.ID
	putErr := m.cache.Put(ctx, &entry)
	m.remember(id, entry, seen)

	live, err := m.sessions.Exists(ctx, id)
	if err == nil && live {
		return putErr
	}
	m.fence(id)
	if delErr := m.cache.Delete(ctx, id); delErr != nil && putErr == nil {
		m.bufferEviction(ctx, []string{id}, nil, delErr)
	}
	return err
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// remember sets the local entry unless an invalidation happened after seen.
func (m *Manager) remember(id string, entry domain.SessionWithUser, seen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == seen {
		m.local.Set(id, entry)
	}
}

// fence drops ids from the local tier and starts a new epoch.
func (m *Manager) fence(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	for _, id := range ids {
		m.local.Delete(id)
	}
}

func (m *Manager) cleanupExpired(ctx context.Context, id string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.cache.Delete(gctx, id) })
	g.Go(func() error { return m.sessions.Delete(gctx, id) })
	return g.Wait()
}

// Warm seeds the local tier with an entry already known to be current and
// pushes it to the distributed cache in the background.
func (m *Manager) Warm(entry *domain.SessionWithUser) {
	if entry == nil || entry.Session.ID == "" {
		return
	}
	snapshot := *entry
	seen := m.currentEpoch()
	m.remember(snapshot.Session.ID, snapshot, seen)
	m.dispatch("session.warm", func(ctx context.Context) error {
		return m.publish(ctx, snapshot, seen)
	})
}

// Invalidate destroys one session. The row goes first so that a concurrent
// cache write sees it missing; cache eviction failures are buffered for
// replay and a store failure is returned.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	m.fence(id)
	defer m.fence(id)

	storeErr := m.sessions.Delete(ctx, id)
	if err := m.cache.Delete(ctx, id); err != nil {
		m.bufferEviction(ctx, []string{id}, nil, err)
	}
	if storeErr != nil {
		return domain.StoreFailure(storeErr)
	}
	return nil
}

// InvalidateUser destroys every session of userID and drops the cached user.
func (m *Manager) InvalidateUser(ctx context.Context, userID string) error {
	ids, err := m.sessions.ListIDsByUser(ctx, userID)
	if err != nil {
		return domain.StoreFailure(err)
	}
	m.fence(ids...)
	defer m.fence(ids...)

	storeErr := m.sessions.DeleteByUser(ctx, userID)

	var cacheErr error
	if len(ids) > 0 {
		cacheErr = m.cache.Delete(ctx, ids...)
	}
	if err := m.cache.DeleteUser(ctx, userID); err != nil && cacheErr == nil {
		cacheErr = err
	}
	if cacheErr != nil {
		m.bufferEviction(ctx, ids, []string{userID}, cacheErr)
	}
	if storeErr != nil {
		return domain.StoreFailure(storeErr)
	}
	return nil
}

func (m *Manager) bufferEviction(ctx context.Context, sessionIDs, userIDs []string, cause error) {
	m.logger.Warn("session cache eviction failed",
		zap.Strings("session_ids", sessionIDs),
		zap.Strings("user_ids", userIDs),
		zap.Error(cause),
	)
	if m.outbox == nil {
		return
	}
	if err := m.outbox.BufferEviction(ctx, sessionIDs, userIDs); err != nil {
		m.logger.Error("failed to buffer cache eviction", zap.Error(err))
	}
}

func (m *Manager) dispatch(name string, task usecase.BackgroundTask) {
	if !m.dispatcher.Dispatch(name, task) {
		m.logger.Debug("background task dropped", zap.String("task", name))
	}
}
