package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
)

const (
	DefaultLifetime   = 10 * time.Minute
	DefaultCacheTTL   = 10 * time.Minute
	DefaultCodeLength = 6

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
)

type Config struct {
	Lifetime   time.Duration
	CacheTTL   time.Duration
	CodeLength int
	Now        func() time.Time
}

// Service issues and resolves one-time codes, reading through a short-lived
// cache in front of the code table.
type Service struct {
	codes  repository.CodeRepository
	cache  repository.CodeCache
	logger *zap.Logger
	cfg    Config
}

func NewService(codes repository.CodeRepository, cache repository.CodeCache, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{codes: codes, cache: cache, logger: logger, cfg: cfg}
}

// GenerateCode draws length characters from the url-safe alphabet.
func GenerateCode(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)&(len(alphabet)-1)]
	}
	return string(buf)
}

// Get returns the record for (email, code), expired or not. Callers decide
// what an expired record means for them.
func (s *Service) Get(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	record, err := s.cache.Get(ctx, email, code)
	switch {
	case err == nil:
		return record, nil
	case errors.Is(err, domain.ErrVerificationCodeNotFound):
	default:
		s.logger.Debug("code cache read failed", zap.String("email", email), zap.Error(err))
	}

	record, err = s.codes.GetByEmailAndCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationCodeNotFound) {
			return nil, domain.ErrVerificationCodeNotFound
		}
		return nil, domain.StoreFailure(err)
	}

	ttl := record.ExpiresAt.Sub(s.cfg.Now())
	if ttl > s.cfg.CacheTTL {
		ttl = s.cfg.CacheTTL
	}
	if ttl > 0 {
		if err := s.cache.Set(ctx, record, ttl); err != nil {
			s.logger.Debug("code cache write failed", zap.String("email", email), zap.Error(err))
		}
	}
	return record, nil
}

// Clear evicts a cached code. It never fails.
func (s *Service) Clear(ctx context.Context, email, code string) {
	if err := s.cache.Delete(ctx, email, code); err != nil {
		s.logger.Debug("code cache eviction failed", zap.String("email", email), zap.Error(err))
	}
}

// Consume burns a code so it cannot be used again. Only one caller can
// consume a given code; the others get domain.ErrVerificationCodeNotFound.
func (s *Service) Consume(ctx context.Context, record *domain.VerificationCode) error {
	if record == nil {
		return domain.ErrVerificationCodeNotFound
	}
	var g errgroup.Group
	g.Go(func() error {
		if err := s.codes.Delete(ctx, record.ID, record.Code); err != nil {
			if errors.Is(err, domain.ErrVerificationCodeNotFound) {
				return domain.ErrVerificationCodeNotFound
			}
			return domain.StoreFailure(err)
		}
		return nil
	})
	g.Go(func() error {
		s.Clear(ctx, record.Email, record.Code)
		return nil
	})
	return g.Wait()
}

// Issue creates or replaces the code for email. A superseded code is evicted
// from the cache so it stops resolving immediately.
func (s *Service) Issue(ctx context.Context, email string) (*domain.VerificationCode, error) {
	record := &domain.VerificationCode{
		Email:     email,
		Code:      GenerateCode(s.cfg.CodeLength),
		ExpiresAt: s.cfg.Now().Add(s.cfg.Lifetime).UTC().Truncate(time.Microsecond),
	}
	superseded, err := s.codes.Upsert(ctx, record)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}

	if superseded != "" && superseded != record.Code {
		s.Clear(ctx, email, superseded)
	}
	return record, nil
}
