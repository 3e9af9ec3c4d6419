package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/logging"
	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
	"github.com/iliyamo/account-auth/internal/token"
	"github.com/iliyamo/account-auth/internal/utils"
)

// AuthDeps wires an AuthService. Clock, NewRecoveryToken and NewDeletionCode
// are optional.
type AuthDeps struct {
	Users    UserStore
	Recovery RecoveryTokenStore
	Deletion DeletionCodeStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Events   Publisher
	Log      logging.Logger

	RecoveryTTL time.Duration
	DeletionTTL time.Duration

	Clock            func() time.Time
	NewRecoveryToken func() (string, error)
	NewDeletionCode  func() (string, error)
}

// AuthService implements registration, login, profile and credential
// lifecycle operations.
type AuthService struct {
	users    UserStore
	recovery RecoveryTokenStore
	deletion DeletionCodeStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	events   Publisher
	log      logging.Logger

	recoveryTTL time.Duration
	deletionTTL time.Duration

	now          func() time.Time
	recoveryCode func() (string, error)
	deletionCode func() (string, error)
}

// NewAuthService wires the account operations. Clock, Log and the code
// generators are optional; every store, the hasher, the token issuer and the
// event publisher are not.
func NewAuthService(d AuthDeps) *AuthService {
	if d.Users == nil || d.Recovery == nil || d.Deletion == nil || d.Hasher == nil || d.Tokens == nil || d.Events == nil {
		panic("service: AuthService requires users, recovery, deletion, hasher, tokens and events")
	}
	if d.RecoveryTTL <= 0 || d.DeletionTTL <= 0 {
		panic("service: AuthService requires positive recovery and deletion TTLs")
	}
	s := &AuthService{
		users:        d.Users,
		recovery:     d.Recovery,
		deletion:     d.Deletion,
		hasher:       d.Hasher,
		tokens:       d.Tokens,
		events:       d.Events,
		log:          d.Log,
		recoveryTTL:  d.RecoveryTTL,
		deletionTTL:  d.DeletionTTL,
		now:          d.Clock,
		recoveryCode: d.NewRecoveryToken,
		deletionCode: d.NewDeletionCode,
	}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	s.log = s.log.With("component", "auth")
	if s.now == nil {
		s.now = time.Now
	}
	if s.recoveryCode == nil {
		s.recoveryCode = RandomRecoveryToken
	}
	if s.deletionCode == nil {
		s.deletionCode = RandomDeletionCode
	}
	return s
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User  model.User
	Token token.Signed
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := s.ensureFree(ctx, "email", email, ""); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, "username", in.Username, ""); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	u := model.User{
		Name:           name,
		Username:       in.Username,
		Email:          email,
		Password:       hash,
		Role:           model.RoleUser,
		AvatarFallback: DeriveFallback(name),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, userWriteError("create user", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
		u.UpdatedAt = u.CreatedAt
	}

	signed, err := s.session(u)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PatternUserRegistered, queue.UserEvent{
		ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt,
	})
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return &AuthResult{User: u, Token: signed}, nil
}

// LoginInput identifies the user by username, email or both (OR'd).
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login verifies credentials. Failed attempts are not throttled.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.users.GetByLogin(ctx, in.Username, normalizeEmail(in.Email))
	if err != nil {
		return nil, lookupError("user not found", err)
	}
	if !s.hasher.Compare(u.Password, in.Password) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	signed, err := s.session(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: signed}, nil
}

// Current returns the signed-in user. NotFound once the account is gone.
func (s *AuthService) Current(ctx context.Context, userID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, lookupError("user not found", err)
	}
	return u, nil
}

// Availability answers whether a username or email can still be registered.
type Availability struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

var emailShape = regexp.MustCompile(`^\S.+@.+\..+`)

// CheckAvailability reports whether value is unused for field.
func (s *AuthService) CheckAvailability(ctx context.Context, field, value string) (Availability, error) {
	switch field {
	case "email":
		if !emailShape.MatchString(value) {
			return Availability{}, apperror.BadRequest("informed email is not valid")
		}
		value = normalizeEmail(value)
	case "username":
	default:
		return Availability{}, apperror.BadRequest("field must be one of username, email")
	}
	n, err := s.users.CountBy(ctx, field, value)
	if err != nil {
		return Availability{}, apperror.Internal(fmt.Errorf("count %s: %w", field, err))
	}
	return Availability{Field: field, Value: value, Valid: n == 0}, nil
}

// UpdateInput lists the profile fields to change. Nil fields are untouched.
type UpdateInput struct {
	Name      *string
	Username  *string
	Email     *string
	AvatarURL *string
	Bio       *string
}

// UpdateProfile applies in and re-issues the session token so the new
// username and email reach the client right away.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*AuthResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError("user not found", err)
	}

	var p model.UserPatch
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != u.Email {
			if err := s.ensureFree(ctx, "email", email, u.ID); err != nil {
				return nil, err
			}
			p.Email = &email
		}
	}
	if in.Username != nil && *in.Username != u.Username {
		if err := s.ensureFree(ctx, "username", *in.Username, u.ID); err != nil {
			return nil, err
		}
		p.Username = in.Username
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		fallback := DeriveFallback(name)
		p.Name, p.AvatarFallback = &name, &fallback
	}
	p.AvatarURL = in.AvatarURL
	p.Bio = in.Bio

	updated := u
	if !p.Empty() {
		updated, err = s.users.Update(ctx, u.ID, p)
		if err != nil {
			return nil, userWriteError("update user", err)
		}
	}

	signed, err := s.session(updated)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PatternUserUpdated, queue.UserUpdatedEvent{
		ID: updated.ID, Email: updated.Email, Username: updated.Username, UpdatedAt: updated.UpdatedAt,
	})
	return &AuthResult{User: updated, Token: signed}, nil
}

// ChangePassword replaces the password after checking the old one. The
// current session stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return lookupError("user not found", err)
	}
	if !s.hasher.Compare(u.Password, oldPassword) {
		return apperror.Forbidden("old password is incorrect")
	}
	if newPassword == oldPassword {
		return apperror.Forbidden("new password must be different from the old one")
	}
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return lookupError("user not found", err)
	}
	s.publish(ctx, queue.PatternUserPasswordUpdated, queue.PasswordChangedEvent{
		User: userRef(u), ChangedAt: s.now().UTC(),
	})
	return nil
}

// session issues a session token for u.
func (s *AuthService) session(u model.User) (token.Signed, error) {
	claims := token.Claims{Email: u.Email, Username: u.Username, Scopes: []string{u.Role}}
	claims.Subject = u.ID
	signed, err := s.tokens.Create(claims, token.PurposeSession)
	if err != nil {
		return token.Signed{}, apperror.Internal(err)
	}
	return signed, nil
}

// ensureFree fails with AlreadyExists when another user (not self) holds value.
func (s *AuthService) ensureFree(ctx context.Context, field, value, self string) error {
	var (
		u   model.User
		err error
	)
	if field == "email" {
		u, err = s.users.GetByEmail(ctx, value)
	} else {
		u, err = s.users.GetByUsername(ctx, value)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return apperror.Internal(fmt.Errorf("lookup %s: %w", field, err))
	case u.ID == self:
		return nil
	}
	return apperror.AlreadyExists(field + " is already in use")
}

// publish is best-effort: a broker failure is logged and swallowed.
func (s *AuthService) publish(ctx context.Context, pattern string, data any) {
	if err := s.events.Publish(ctx, pattern, data); err != nil {
		s.log.Warn(ctx, "event publish failed", "pattern", pattern, "error", err)
	}
}

// hashPassword maps bcrypt's length limit to a client error.
func (s *AuthService) hashPassword(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	switch {
	case errors.Is(err, utils.ErrPasswordTooLong):
		return "", apperror.BadRequest("password is too long")
	case err != nil:
		return "", apperror.Internal(fmt.Errorf("hash password: %w", err))
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userRef(u model.User) queue.UserRef {
	return queue.UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
}

func lookupError(notFound string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(notFound)
	}
	return apperror.Internal(err)
}

func userWriteError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return apperror.AlreadyExists("email is already in use")
	case errors.Is(err, repository.ErrUsernameExists):
		return apperror.AlreadyExists("username is already in use")
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("user not found")
	}
	return apperror.Internal(fmt.Errorf("%s: %w", op, err))
}

// RandomRecoveryToken returns a random (version 4) UUID.
func RandomRecoveryToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var deletionCodeSpan = big.NewInt(90000)

// RandomDeletionCode returns a code drawn uniformly from [10000, 99999].
func RandomDeletionCode() (string, error) {
	n, err := rand.Int(rand.Reader, deletionCodeSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+10000), nil
}
