package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/account-auth/internal/logging"
)

const sweepLockKey = "accounts:sweeper:lock"

// Locker grants a short exclusive lease so that only one replica sweeps at
// a time. ok is false when another holder has it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type SweeperConfig struct {
	Recovery    ExpiredStore
	Deletion    ExpiredStore // optional
	RecoveryTTL time.Duration
	DeletionTTL time.Duration
	Interval    time.Duration
	Lock        Locker // optional
	Log         logging.Logger
	Clock       func() time.Time
}

// Sweeper periodically deletes recovery tokens and deletion codes that
// expired at least one TTL ago.
type Sweeper struct {
	cfg SweeperConfig
	log logging.Logger
	now func() time.Time
}

type SweepResult struct {
	RecoveryTokens int64
	DeletionCodes  int64
	Skipped        bool // another replica held the lock
}

// NewSweeper defaults the interval to five minutes. Without a Lock every
// replica sweeps on its own schedule.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Recovery == nil {
		panic("service: Sweeper requires a recovery token store")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	s := &Sweeper{cfg: cfg, log: cfg.Log, now: cfg.Clock}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	s.log = s.log.With("component", "sweeper")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sweep runs one pass.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s.cfg.Lock != nil {
		release, ok, err := s.cfg.Lock.TryLock(ctx, sweepLockKey, s.cfg.Interval)
		if err != nil {
			return res, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	now := s.now()
	n, err := purge(ctx, s.cfg.Recovery, now.Add(-s.cfg.RecoveryTTL))
	if err != nil {
		return res, fmt.Errorf("sweep recovery tokens: %w", err)
	}
	res.RecoveryTokens = n

	if s.cfg.Deletion != nil {
		n, err := purge(ctx, s.cfg.Deletion, now.Add(-s.cfg.DeletionTTL))
		if err != nil {
			return res, fmt.Errorf("sweep deletion codes: %w", err)
		}
		res.DeletionCodes = n
	}
	return res, nil
}

func purge(ctx context.Context, store ExpiredStore, cutoff time.Time) (int64, error) {
	ids, err := store.ExpiredIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return store.DeleteByIDs(ctx, ids)
}

// Run sweeps every interval until ctx is cancelled. A failed pass is
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.log.Info(ctx, "sweeper started", "interval", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info(context.WithoutCancel(ctx), "sweeper stopped")
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error(ctx, "sweep failed", "error", err)
				continue
			}
			if res.RecoveryTokens > 0 || res.DeletionCodes > 0 {
				s.log.Info(ctx, "expired credentials removed",
					"recovery_tokens", res.RecoveryTokens, "deletion_codes", res.DeletionCodes)
			}
		}
	}
}
