package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	s := New(nil)
	assert.Error(t, s.Register(Job{Name: "zero"}))
	require.NoError(t, s.Register(Job{Name: "a", Interval: time.Minute, Fn: func(context.Context) error { return nil }}))
	assert.Error(t, s.Register(Job{Name: "a", Interval: time.Minute}))
}

func TestRunNowRecordsOutcome(t *testing.T) {
	s := New(nil)
	fail := true
	require.NoError(t, s.Register(Job{Name: "flaky", Interval: time.Hour, Fn: func(context.Context) error {
		if fail {
			return errors.New("nope")
		}
		return nil
	}}))

	require.NoError(t, s.RunNow(context.Background(), "flaky"))
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
	assert.Equal(t, "nope", list[0].Message)
	assert.NotNil(t, list[0].LastRunAt)

	fail = false
	require.NoError(t, s.RunNow(context.Background(), "flaky"))
	assert.Equal(t, StatusOK, s.List()[0].Status)

	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartRunsUntilCancelled(t *testing.T) {
	s := New(nil)
	var runs int32
	require.NoError(t, s.Register(Job{Name: "tick", Interval: 5 * time.Millisecond, Fn: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, time.Millisecond)
	cancel()
	s.Wait()
}
