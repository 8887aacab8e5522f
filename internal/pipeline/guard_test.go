package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	held bool
	err  error
	keys []int64
}

func (l *fakeLocker) WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	defer func() { l.held = false }()
	return true, fn(ctx)
}

type runnerFunc func(ctx context.Context, season, week int) (Result, error)

func (f runnerFunc) Run(ctx context.Context, season, week int) (Result, error) {
	return f(ctx, season, week)
}

func TestGuarded_Runs(t *testing.T) {
	locker := &fakeLocker{}
	g := NewGuarded(runnerFunc(func(ctx context.Context, season, week int) (Result, error) {
		return Result{Season: season, Week: week, InsertedSnapshots: 4}, nil
	}), locker, 42)

	res, err := g.Run(context.Background(), 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, res.InsertedSnapshots)
	assert.Equal(t, []int64{42}, locker.keys)
	assert.False(t, locker.held, "Lock released after run")
}

func TestGuarded_InProgress(t *testing.T) {
	locker := &fakeLocker{}
	var inner error

	var g *Guarded
	g = NewGuarded(runnerFunc(func(ctx context.Context, season, week int) (Result, error) {
		_, inner = g.Run(ctx, season, week)
		return Result{}, nil
	}), locker, 42)

	_, err := g.Run(context.Background(), 2025, 6)
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrRunInProgress)
}

func TestGuarded_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	g := NewGuarded(runnerFunc(func(ctx context.Context, season, week int) (Result, error) {
		return Result{}, boom
	}), &fakeLocker{}, 1)
	_, err := g.Run(context.Background(), 2025, 6)
	assert.ErrorIs(t, err, boom)

	lockErr := errors.New("pool exhausted")
	g = NewGuarded(runnerFunc(func(ctx context.Context, season, week int) (Result, error) {
		t.Fatal("runner must not be called")
		return Result{}, nil
	}), &fakeLocker{err: lockErr}, 1)
	_, err = g.Run(context.Background(), 2025, 6)
	assert.ErrorIs(t, err, lockErr)
}
