package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kolamart/kolamart/internal/kv"
	"go.uber.org/zap"
)

// ErrLockHeld means another worker is actively processing the same event key.
// Callers surface it to the queue so retry/backoff schedules a later attempt;
// it is expected under concurrent delivery and must not alert.
var ErrLockHeld = errors.New("idempotency: event lock held by another worker")

type Outcome string

const (
	// OutcomeDone means fn ran to completion and the durable marker was written.
	OutcomeDone Outcome = "done"
	// OutcomeSkipped means a durable marker already covered this key; fn did not run.
	OutcomeSkipped Outcome = "skipped"
)

const (
	lockPrefix      = "lock:"
	processedPrefix = "processed:"
)

// Store implements the two-phase lock+marker protocol over a shared key-value
// store. The processed marker is the sole authority for "this logical event has
// been fully handled"; the lock only keeps concurrent workers off one key.
type Store struct {
	kv           kv.Store
	lockTTL      time.Duration
	processedTTL time.Duration
	log          *zap.Logger
}

func NewStore(store kv.Store, lockTTL, processedTTL time.Duration, log *zap.Logger) *Store {
	if lockTTL <= 0 {
		lockTTL = 60 * time.Second
	}
	if processedTTL <= 0 {
		processedTTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:           store,
		lockTTL:      lockTTL,
		processedTTL: processedTTL,
		log:          log.Named("idempotency"),
	}
}

// Run executes fn at most once per key across all workers.
//
// The marker write is the last step on the success path and never happens on
// failure; the lock is released on every exit path. Reordering either breaks
// retry semantics: a marker written before fn completes would permanently skip
// a failed attempt, and a leaked lock would stall retries until TTL expiry.
func (s *Store) Run(ctx context.Context, key string, fn func(ctx context.Context) error) (Outcome, error) {
	if key == "" {
		return "", errors.New("idempotency: key is empty")
	}

	processed, err := s.kv.Exists(ctx, processedPrefix+key)
	if err != nil {
		return "", err
	}
	if processed {
		return OutcomeSkipped, nil
	}

	token := uuid.NewString()
	acquired, err := s.kv.SetNX(ctx, lockPrefix+key, token, s.lockTTL)
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", ErrLockHeld
	}

	// A concurrent worker may have finished between the fast-path check and
	// the lock grab.
	processed, err = s.kv.Exists(ctx, processedPrefix+key)
	if err != nil {
		s.release(ctx, key, token)
		return "", err
	}
	if processed {
		s.release(ctx, key, token)
		return OutcomeSkipped, nil
	}

	if err := fn(ctx); err != nil {
		s.release(ctx, key, token)
		return "", err
	}

	if err := s.kv.Set(ctx, processedPrefix+key, time.Now().UTC().Format(time.RFC3339), s.processedTTL); err != nil {
		s.release(ctx, key, token)
		return "", err
	}
	s.release(ctx, key, token)
	return OutcomeDone, nil
}

func (s *Store) release(ctx context.Context, key, token string) {
	if err := s.kv.CompareAndDelete(ctx, lockPrefix+key, token); err != nil {
		s.log.Warn("failed to release event lock", zap.String("key", key), zap.Error(err))
	}
}
