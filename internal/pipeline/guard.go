package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Locker runs fn while holding an exclusive lock on key. It reports false
// without calling fn when the lock is held elsewhere.
type Locker interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error)
}

// Guarded serialises runs across processes sharing one database
type Guarded struct {
	runner Runner
	locker Locker
	key    int64
}

// NewGuarded wraps runner with the lock identified by key
func NewGuarded(runner Runner, locker Locker, key int64) *Guarded {
	return &Guarded{runner: runner, locker: locker, key: key}
}

// Run executes the wrapped runner or returns ErrRunInProgress
func (g *Guarded) Run(ctx context.Context, season, week int) (Result, error) {
	var res Result

	acquired, err := g.locker.WithAdvisoryLock(ctx, g.key, func(ctx context.Context) error {
		var runErr error
		res, runErr = g.runner.Run(ctx, season, week)
		return runErr
	})
	if err != nil {
		return res, err
	}
	if !acquired {
		log.Warn().
			Int("season", season).
			Int("week", week).
			Int64("lock_key", g.key).
			Msg("Snapshot run skipped: lock held")
		return Result{Season: season, Week: week}, ErrRunInProgress
	}

	return res, nil
}
