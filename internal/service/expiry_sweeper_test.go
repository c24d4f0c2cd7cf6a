package service

import (
	"testing"
	"time"

	"github.com/examguard/examguard/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSweepOnceExpiresOverdueAttempts(t *testing.T) {
	env := newLifecycleEnv(t)
	now := baseTime()
	exam := env.createExam(t, flexibleExam(now))

	overdue, err := env.lifecycle.Start(exam.ID, 1, now)
	require.NoError(t, err)
	_, err = env.lifecycle.Heartbeat(overdue.ID, now.Add(59*time.Minute))
	require.NoError(t, err)

	fresh, err := env.lifecycle.Start(exam.ID, 2, now.Add(30*time.Minute))
	require.NoError(t, err)

	sweeper := NewExpirySweeper(env.attempts, env.timer, env.lifecycle, testConfig())
	sweepAt := now.Add(61 * time.Minute)
	expired, err := sweeper.SweepOnce(sweepAt)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	stored, err := env.attempts.FindByID(overdue.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttemptExpired, stored.Status)
	// Last heartbeat was two minutes before the sweep, past the 60s threshold.
	require.Equal(t, model.ExpiryTimerDisconnected, *stored.ExpiryReason)

	untouched, err := env.attempts.FindByID(fresh.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttemptStarted, untouched.Status)
}

func TestSweepOnceClassifiesActiveExpiry(t *testing.T) {
	env := newLifecycleEnv(t)
	now := baseTime()
	exam := env.createExam(t, flexibleExam(now))
	attempt, err := env.lifecycle.Start(exam.ID, 1, now)
	require.NoError(t, err)

	sweepAt := now.Add(60*time.Minute + 10*time.Second)
	_, err = env.lifecycle.Heartbeat(attempt.ID, sweepAt.Add(-5*time.Second))
	require.NoError(t, err)

	expired, err := sweeper(env).SweepOnce(sweepAt)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	stored, err := env.attempts.FindByID(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, model.ExpiryTimerActive, *stored.ExpiryReason)
}

func TestSweepOnceExpiresOnWindowClose(t *testing.T) {
	env := newLifecycleEnv(t)
	now := baseTime()
	exam := env.createExam(t, model.Exam{
		Title:           "Closing Window",
		ScheduleMode:    model.ScheduleFlexible,
		StartAt:         now.Add(-time.Hour),
		EndAt:           now.Add(10 * time.Minute),
		DurationSeconds: 3600,
		MaxAttempts:     1,
	})
	attempt, err := env.lifecycle.Start(exam.ID, 1, now)
	require.NoError(t, err)

	expired, err := sweeper(env).SweepOnce(now.Add(11 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	stored, err := env.attempts.FindByID(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, model.ExpiryExamWindowClosed, *stored.ExpiryReason)
}

func TestSweepOnceSkipsPausedWithTimeLeft(t *testing.T) {
	env := newLifecycleEnv(t)
	now := baseTime()
	exam := env.createExam(t, flexibleExam(now))
	attempt, err := env.lifecycle.Start(exam.ID, 1, now)
	require.NoError(t, err)
	_, err = env.lifecycle.Pause(attempt.ID, now.Add(5*time.Minute))
	require.NoError(t, err)

	// Two hours later the wall clock is far past the duration, but paused
	// time does not burn the timer and the window is still open.
	expired, err := sweeper(env).SweepOnce(now.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, expired)

	stored, err := env.attempts.FindByID(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttemptPaused, stored.Status)
}

func TestSweepOnceIdempotentAcrossPasses(t *testing.T) {
	env := newLifecycleEnv(t)
	now := baseTime()
	exam := env.createExam(t, flexibleExam(now))
	attempt, err := env.lifecycle.Start(exam.ID, 1, now)
	require.NoError(t, err)

	sweepAt := now.Add(2 * time.Hour)
	expired, err := sweeper(env).SweepOnce(sweepAt)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	again, err := sweeper(env).SweepOnce(sweepAt.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 0, again)

	stored, err := env.attempts.FindByID(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.Version)
}

func sweeper(env *lifecycleEnv) *ExpirySweeper {
	return NewExpirySweeper(env.attempts, env.timer, env.lifecycle, testConfig())
}
