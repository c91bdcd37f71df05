package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
	"github.com/fastygo/sessionguard/usecase"
	"github.com/fastygo/sessionguard/usecase/session"
)

var (
	ErrDelivery      = domain.NewError(domain.ErrCodeInternal, "Failed to send verification code. Please try again.")
	ErrPasswordHash  = domain.NewError(domain.ErrCodeInternal, "Failed to process password. Please try again!")
	ErrExpiredCodeGC = domain.NewError(domain.ErrCodeInternal, "Failed to process expired code. Please try again.")
)

// Sessions is the part of the session manager the auth flows need.
type Sessions interface {
	SetSession(ctx context.Context, cookies session.CookieWriter, userID string, metadata domain.SessionMetadata, user *domain.User) (*domain.Session, error)
	Validate(ctx context.Context, token string) (*domain.SessionWithUser, error)
	Invalidate(ctx context.Context, id string) error
	InvalidateUser(ctx context.Context, userID string) error
}

// Codes is the verification code workflow.
type Codes interface {
	Get(ctx context.Context, email, code string) (*domain.VerificationCode, error)
	Consume(ctx context.Context, record *domain.VerificationCode) error
	Issue(ctx context.Context, email string) (*domain.VerificationCode, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// Credentials carry a sign-in or sign-up submission.
type Credentials struct {
	Email    string
	Password string
	Code     string
}

type UseCase struct {
	users    repository.UserRepository
	codes    Codes
	sessions Sessions
	hasher   PasswordHasher
	mailer   usecase.Mailer
	geo      usecase.Geolocator
	names    NameGenerator
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*UseCase)

func WithNameGenerator(gen NameGenerator) Option {
	return func(uc *UseCase) { uc.names = gen }
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

func New(
	users repository.UserRepository,
	codes Codes,
	sessions Sessions,
	hasher PasswordHasher,
	mailer usecase.Mailer,
	geo usecase.Geolocator,
	logger *zap.Logger,
	opts ...Option,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		users:    users,
		codes:    codes,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		geo:      geo,
		names:    randomName,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// lookup fetches the account and the submitted code concurrently. A failed
// lookup counts as absent.
func (uc *UseCase) lookup(ctx context.Context, email, code string) (*domain.UserRecord, *domain.VerificationCode) {
	var (
		user   *domain.UserRecord
		record *domain.VerificationCode
		g      errgroup.Group
	)
	g.Go(func() error {
		found, err := uc.users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			uc.logger.Warn("user lookup failed", zap.Error(err))
		}
		if err == nil {
			user = found
		}
		return nil
	})
	if code != "" {
		g.Go(func() error {
			found, err := uc.codes.Get(ctx, email, code)
			if err != nil && !errors.Is(err, domain.ErrVerificationCodeNotFound) {
				uc.logger.Warn("verification code lookup failed", zap.Error(err))
			}
			if err == nil {
				record = found
			}
			return nil
		})
	}
	_ = g.Wait()
	return user, record
}

func (uc *UseCase) issueAndSend(ctx context.Context, email string) error {
	record, err := uc.codes.Issue(ctx, email)
	if err != nil {
		return err
	}
	err = uc.mailer.SendVerificationCode(ctx, usecase.VerificationMail{
		Email:     email,
		Code:      record.Code,
		ExpiresAt: record.ExpiresAt,
	})
	if err != nil {
		return domain.WrapError(ErrDelivery.Code, ErrDelivery.Message, err)
	}
	return nil
}

// rejectExpired burns an expired code and reports it.
func (uc *UseCase) rejectExpired(ctx context.Context, record *domain.VerificationCode) error {
	err := uc.codes.Consume(ctx, record)
	if err != nil && !errors.Is(err, domain.ErrVerificationCodeNotFound) {
		return domain.WrapError(ErrExpiredCodeGC.Code, ErrExpiredCodeGC.Message, err)
	}
	return domain.ErrVerificationCodeExpired
}

func (uc *UseCase) checkPassword(user *domain.UserRecord, password string) error {
	ok, err := uc.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		uc.logger.Warn("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return domain.ErrInvalidCredentials
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// SendSignInCode e-mails a fresh code once the password has been checked.
func (uc *UseCase) SendSignInCode(ctx context.Context, email, password string) error {
	user, _ := uc.lookup(ctx, email, "")
	if !user.HasPassword() {
		return domain.ErrInvalidCredentials
	}
	if err := uc.checkPassword(user, password); err != nil {
		return err
	}
	return uc.issueAndSend(ctx, email)
}

// SignIn verifies password and code, burns the code and opens a session.
func (uc *UseCase) SignIn(ctx context.Context, cookies session.CookieWriter, creds Credentials, client Client) (*domain.User, error) {
	user, record := uc.lookup(ctx, creds.Email, creds.Code)
	if !user.HasPassword() || record == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if record.IsExpired(uc.now()) {
		return nil, uc.rejectExpired(ctx, record)
	}
	if err := uc.checkPassword(user, creds.Password); err != nil {
		return nil, err
	}

	metadata := uc.sessionMetadata(ctx, client)
	if err := uc.codes.Consume(ctx, record); err != nil {
		if errors.Is(err, domain.ErrVerificationCodeNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if _, err := uc.sessions.SetSession(ctx, cookies, user.ID, metadata, &user.User); err != nil {
		return nil, err
	}
	return &user.User, nil
}

// SendSignUpCode e-mails a code to an address that has no account yet.
func (uc *UseCase) SendSignUpCode(ctx context.Context, email string) error {
	if user, _ := uc.lookup(ctx, email, ""); user != nil {
		return domain.ErrEmailInUse
	}
	return uc.issueAndSend(ctx, email)
}

// SignUp creates the account behind a verified address and signs it in.
func (uc *UseCase) SignUp(ctx context.Context, cookies session.CookieWriter, creds Credentials, client Client) (*domain.User, error) {
	existing, record := uc.lookup(ctx, creds.Email, creds.Code)
	if existing != nil {
		return nil, domain.ErrEmailInUse
	}
	if record == nil {
		return nil, domain.ErrInvalidCode
	}
	if record.IsExpired(uc.now()) {
		return nil, uc.rejectExpired(ctx, record)
	}

	var (
		hash     string
		metadata domain.SessionMetadata
		g        errgroup.Group
	)
	g.Go(func() error {
		var err error
		hash, err = uc.hasher.Hash(creds.Password)
		if err != nil {
			return domain.WrapError(ErrPasswordHash.Code, ErrPasswordHash.Message, err)
		}
		return nil
	})
	g.Go(func() error {
		metadata = uc.sessionMetadata(ctx, client)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := NewProfile(uc.names())
	account := &domain.UserRecord{
		User: domain.User{
			ID:            uuid.NewString(),
			Email:         creds.Email,
			Username:      profile.Username,
			Avatar:        profile.Avatar,
			EmailVerified: true,
		},
		PasswordHash: hash,
	}
	if err := uc.users.Create(ctx, account); err != nil {
		return nil, domain.StoreFailure(err)
	}

	if err := uc.codes.Consume(ctx, record); err != nil {
		if errors.Is(err, domain.ErrVerificationCodeNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}
	if _, err := uc.sessions.SetSession(ctx, cookies, account.ID, metadata, &account.User); err != nil {
		return nil, err
	}
	return &account.User, nil
}

// SignOut destroys the session behind token. A void token is reported as
// unauthorized so the caller can drop the cookie.
func (uc *UseCase) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}
	current, err := uc.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	return uc.sessions.Invalidate(ctx, current.Session.ID)
}

// SignOutAll destroys every session of the user.
func (uc *UseCase) SignOutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	return uc.sessions.InvalidateUser(ctx, userID)
}
