package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/testutil"
)

type fakeLock struct {
	held     bool
	err      error
	released int
}

func (l *fakeLock) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	if l.err != nil || l.held {
		return func() {}, false, l.err
	}
	return func() { l.released++ }, true, nil
}

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	db := testutil.NewDB()
	rec, del := db.Recovery(), db.Deletion()

	// cutoff for recovery tokens is now-15m, for deletion codes now-10m
	rec.Put(model.AccountRecoveryToken{ID: "old", UserID: "u1", ExpiresAt: now.Add(-20 * time.Minute)})
	rec.Put(model.AccountRecoveryToken{ID: "edge", UserID: "u2", ExpiresAt: now.Add(-15 * time.Minute)})
	rec.Put(model.AccountRecoveryToken{ID: "stale-but-young", UserID: "u3", ExpiresAt: now.Add(-5 * time.Minute)})
	rec.Put(model.AccountRecoveryToken{ID: "live", UserID: "u4", ExpiresAt: now.Add(5 * time.Minute)})
	del.Put(model.AccountDeletionCode{ID: "c-old", UserID: "u1", ExpiresAt: now.Add(-11 * time.Minute)})
	del.Put(model.AccountDeletionCode{ID: "c-live", UserID: "u2", ExpiresAt: now.Add(time.Minute)})

	lock := &fakeLock{}
	s := NewSweeper(SweeperConfig{
		Recovery: rec, Deletion: del,
		RecoveryTTL: recoveryTTL, DeletionTTL: deletionTTL,
		Lock:  lock,
		Clock: func() time.Time { return now },
	})

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.RecoveryTokens)
	assert.EqualValues(t, 1, res.DeletionCodes)
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, 1, del.Len())
	assert.Equal(t, 1, lock.released)

	res, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.RecoveryTokens)
	assert.Zero(t, res.DeletionCodes)
}

func TestSweeper_SkipsWhenLockHeld(t *testing.T) {
	db := testutil.NewDB()
	db.Recovery().Put(model.AccountRecoveryToken{ID: "old", UserID: "u1", ExpiresAt: time.Unix(0, 0)})

	s := NewSweeper(SweeperConfig{Recovery: db.Recovery(), RecoveryTTL: time.Minute, Lock: &fakeLock{held: true}})

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, db.Recovery().Len())
}

func TestSweeper_ReportsStoreErrors(t *testing.T) {
	db := testutil.NewDB()
	db.Fail("recovery.ExpiredIDs", errors.New("db down"))

	s := NewSweeper(SweeperConfig{Recovery: db.Recovery(), RecoveryTTL: time.Minute})

	_, err := s.Sweep(context.Background())
	assert.ErrorContains(t, err, "sweep recovery tokens: db down")
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	db := testutil.NewDB()
	db.Recovery().Put(model.AccountRecoveryToken{ID: "old", UserID: "u1", ExpiresAt: time.Unix(0, 0)})

	s := NewSweeper(SweeperConfig{Recovery: db.Recovery(), RecoveryTTL: time.Minute, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return db.Recovery().Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	release, ok, err := NewRedisLocker(rdb).TryLock(context.Background(), "k", time.Second)

	assert.Error(t, err)
	assert.False(t, ok)
	assert.NotPanics(t, release)
}
