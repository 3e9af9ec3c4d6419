// Package testutil provides in-memory stores, fakes and HTTP assertions
// shared by the service and handler tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/repository"
)

// DB is an in-memory stand-in for the MySQL schema, including its unique
// keys and ON DELETE CASCADE. Views returned by Users, Recovery and
// Deletion share its state.
type DB struct {
	mu       sync.Mutex
	users    map[string]model.User
	recovery map[string]model.AccountRecoveryToken
	deletion map[string]model.AccountDeletionCode
	fail     map[string]error
	now      func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:    map[string]model.User{},
		recovery: map[string]model.AccountRecoveryToken{},
		deletion: map[string]model.AccountDeletionCode{},
		fail:     map[string]error{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Fail makes the named operation (e.g. "users.Create") return err until cleared with a nil err.
func (db *DB) Fail(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.fail, op)
		return
	}
	db.fail[op] = err
}

func (db *DB) failure(op string) error { return db.fail[op] }

func (db *DB) Users() *Users             { return &Users{db: db} }
func (db *DB) Recovery() *RecoveryTokens { return &RecoveryTokens{db: db} }
func (db *DB) Deletion() *DeletionCodes  { return &DeletionCodes{db: db} }

// SetClock sets the time used for created_at and updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Users implements service.UserStore.
type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("users.Create"); err != nil {
		return err
	}
	for _, other := range s.db.users {
		if strings.EqualFold(other.Email, u.Email) {
			return repository.ErrEmailExists
		}
		if strings.EqualFold(other.Username, u.Username) {
			return repository.ErrUsernameExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := s.db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = *u
	return nil
}

func (s *Users) find(match func(model.User) bool) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, id string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.ID == id })
}

func (s *Users) GetByUsername(_ context.Context, username string) (model.User, error) {
	return s.find(func(u model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	return s.find(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Users) GetByLogin(_ context.Context, username, email string) (model.User, error) {
	return s.find(func(u model.User) bool {
		return (username != "" && strings.EqualFold(u.Username, username)) ||
			(email != "" && strings.EqualFold(u.Email, email))
	})
}

func (s *Users) CountBy(_ context.Context, field, value string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, u := range s.db.users {
		if (field == "email" && strings.EqualFold(u.Email, value)) ||
			(field == "username" && strings.EqualFold(u.Username, value)) {
			n++
		}
	}
	return n, nil
}

func (s *Users) Update(_ context.Context, id string, p model.UserPatch) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("users.Update"); err != nil {
		return model.User{}, err
	}
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	for oid, other := range s.db.users {
		if oid == id {
			continue
		}
		if p.Email != nil && strings.EqualFold(other.Email, *p.Email) {
			return model.User{}, repository.ErrEmailExists
		}
		if p.Username != nil && strings.EqualFold(other.Username, *p.Username) {
			return model.User{}, repository.ErrUsernameExists
		}
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Name, p.Name)
	set(&u.Username, p.Username)
	set(&u.Email, p.Email)
	set(&u.AvatarFallback, p.AvatarFallback)
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		u.AvatarURL = &v
	}
	if p.Bio != nil {
		v := *p.Bio
		u.Bio = &v
	}
	u.UpdatedAt = s.db.now()
	s.db.users[id] = u
	return u, nil
}

func (s *Users) UpdatePassword(_ context.Context, id, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	s.db.users[id] = u
	return nil
}

// Delete cascades to the user's recovery tokens and deletion codes.
func (s *Users) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.users, id)
	for k, t := range s.db.recovery {
		if t.UserID == id {
			delete(s.db.recovery, k)
		}
	}
	for k, c := range s.db.deletion {
		if c.UserID == id {
			delete(s.db.deletion, k)
		}
	}
	return nil
}

// Len returns the number of stored users.
func (s *Users) Len() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.users)
}

// RecoveryTokens implements service.RecoveryTokenStore.
type RecoveryTokens struct{ db *DB }

func (s *RecoveryTokens) Create(_ context.Context, t *model.AccountRecoveryToken) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.recovery {
		if other.UserID == t.UserID {
			return repository.ErrTokenExists
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = s.db.now()
	s.db.recovery[t.ID] = *t
	return nil
}

func (s *RecoveryTokens) GetByUserID(_ context.Context, userID string) (model.AccountRecoveryToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.recovery {
		if t.UserID == userID {
			return t, nil
		}
	}
	return model.AccountRecoveryToken{}, repository.ErrNotFound
}

func (s *RecoveryTokens) GetByToken(_ context.Context, value string) (model.AccountRecoveryToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.recovery {
		if t.Token == value {
			u := s.db.users[t.UserID]
			t.User = &u
			return t, nil
		}
	}
	return model.AccountRecoveryToken{}, repository.ErrNotFound
}

func (s *RecoveryTokens) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.recovery, id)
	return nil
}

// Redeem applies both writes or neither, like the SQL transaction.
func (s *RecoveryTokens) Redeem(_ context.Context, t model.AccountRecoveryToken, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("recovery.Redeem"); err != nil {
		return err
	}
	if _, ok := s.db.recovery[t.ID]; !ok {
		return repository.ErrNotFound
	}
	u, ok := s.db.users[t.UserID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.db.recovery, t.ID)
	u.Password = hash
	s.db.users[u.ID] = u
	return nil
}

func (s *RecoveryTokens) ExpiredIDs(_ context.Context, cutoff time.Time) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("recovery.ExpiredIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for id, t := range s.db.recovery {
		if !t.ExpiresAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *RecoveryTokens) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.db.recovery[id]; ok {
			delete(s.db.recovery, id)
			n++
		}
	}
	return n, nil
}

// Put stores t as-is, skipping the one-per-user check.
func (s *RecoveryTokens) Put(t model.AccountRecoveryToken) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.recovery[t.ID] = t
}

func (s *RecoveryTokens) Len() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.recovery)
}

// DeletionCodes implements service.DeletionCodeStore.
type DeletionCodes struct{ db *DB }

func (s *DeletionCodes) Create(_ context.Context, c *model.AccountDeletionCode) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.deletion {
		if other.UserID == c.UserID {
			return repository.ErrTokenExists
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.db.now()
	s.db.deletion[c.ID] = *c
	return nil
}

func (s *DeletionCodes) GetByUserID(_ context.Context, userID string) (model.AccountDeletionCode, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.deletion {
		if c.UserID == userID {
			return c, nil
		}
	}
	return model.AccountDeletionCode{}, repository.ErrNotFound
}

func (s *DeletionCodes) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.deletion, id)
	return nil
}

func (s *DeletionCodes) ExpiredIDs(_ context.Context, cutoff time.Time) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []string
	for id, c := range s.db.deletion {
		if !c.ExpiresAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *DeletionCodes) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.db.deletion[id]; ok {
			delete(s.db.deletion, id)
			n++
		}
	}
	return n, nil
}

func (s *DeletionCodes) Put(c model.AccountDeletionCode) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.deletion[c.ID] = c
}

func (s *DeletionCodes) Len() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.deletion)
}
