package service

import (
	"testing"
	"time"

	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestGetAttemptSummaryDerivesFields(t *testing.T) {
	env := newOverrideEnv(t)
	attempt := env.startAttempt(t)
	env.now = env.now.Add(10 * time.Minute)

	summary, err := env.query.GetAttemptSummary(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, attempt.ID, summary.ID)
	require.Equal(t, "Systems Design", summary.ExamTitle)
	require.Equal(t, "Ada Candidate", summary.CandidateName)
	require.Equal(t, string(model.AttemptStarted), summary.Status)
	require.Equal(t, 3000, summary.RemainingSeconds)
	require.True(t, summary.CanForceEnd)
	require.True(t, summary.CanResume)
	require.True(t, summary.CanAddTime)
	require.Equal(t, env.now, summary.ComputedAt)
}

func TestGetAttemptSummaryTerminalFlags(t *testing.T) {
	env := newOverrideEnv(t)
	attempt := env.startAttempt(t)
	_, _, err := env.lifecycle.ForceEnd(nil, attempt.ID, "done", false, env.now.Add(time.Minute))
	require.NoError(t, err)

	summary, err := env.query.GetAttemptSummary(attempt.ID)
	require.NoError(t, err)
	require.False(t, summary.CanForceEnd)
	require.False(t, summary.CanResume)
	require.False(t, summary.CanAddTime)
	require.NotNil(t, summary.EndedAt)
}

func TestGetAttemptSummaryUnknown(t *testing.T) {
	env := newOverrideEnv(t)
	_, err := env.query.GetAttemptSummary(12345)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestListAttemptControlFiltersAndPaginates(t *testing.T) {
	env := newOverrideEnv(t)
	now := env.now
	exam := env.createExam(t, flexibleExam(now))
	other := flexibleExam(now)
	other.Title = "Other Exam"
	otherExam := env.createExam(t, other)

	for i := uint(1); i <= 3; i++ {
		env.attempts.candidates[i] = model.Candidate{FullName: "Candidate"}
		_, err := env.lifecycle.Start(exam.ID, i, now)
		require.NoError(t, err)
	}
	env.attempts.candidates[4] = model.Candidate{FullName: "Elsewhere"}
	_, err := env.lifecycle.Start(otherExam.ID, 4, now)
	require.NoError(t, err)

	list, err := env.query.ListAttemptControl(repository.AttemptControlFilter{
		ExamID:   &exam.ID,
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), list.TotalCount)
	require.Len(t, list.Items, 2)
	require.Equal(t, 1, list.Page)
	require.Equal(t, 2, list.PageSize)
	for _, item := range list.Items {
		require.Equal(t, exam.ID, item.ExamID)
	}

	second, err := env.query.ListAttemptControl(repository.AttemptControlFilter{
		ExamID:   &exam.ID,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
}

func TestListAttemptControlBatchFilter(t *testing.T) {
	env := newOverrideEnv(t)
	now := env.now
	exam := flexibleExam(now)
	exam.MaxAttempts = 0
	created := env.createExam(t, exam)

	morning, afternoon := uint(7), uint(8)
	env.attempts.candidates[1] = model.Candidate{FullName: "Morning One", BatchID: &morning}
	env.attempts.candidates[2] = model.Candidate{FullName: "Morning Two", BatchID: &morning}
	env.attempts.candidates[3] = model.Candidate{FullName: "Afternoon", BatchID: &afternoon}
	env.attempts.candidates[4] = model.Candidate{FullName: "Unbatched"}

	var inMorning uint
	for i := uint(1); i <= 4; i++ {
		attempt, err := env.lifecycle.Start(created.ID, i, now)
		require.NoError(t, err)
		if i == 1 {
			inMorning = attempt.ID
		}
	}

	list, err := env.query.ListAttemptControl(repository.AttemptControlFilter{BatchID: &morning})
	require.NoError(t, err)
	require.Equal(t, int64(2), list.TotalCount)
	for _, item := range list.Items {
		require.Contains(t, []string{"Morning One", "Morning Two"}, item.CandidateName)
	}
	require.Equal(t, inMorning, list.Items[0].ID)
}

func TestListAttemptControlStatusFilter(t *testing.T) {
	env := newOverrideEnv(t)
	now := env.now
	exam := flexibleExam(now)
	exam.MaxAttempts = 0
	created := env.createExam(t, exam)

	active, err := env.lifecycle.Start(created.ID, 1, now)
	require.NoError(t, err)
	_, err = env.lifecycle.ResumeOverride(nil, active.ID, now)
	require.NoError(t, err)

	done, err := env.lifecycle.Start(created.ID, 2, now)
	require.NoError(t, err)
	_, err = env.lifecycle.ResumeOverride(nil, done.ID, now)
	require.NoError(t, err)
	_, err = env.lifecycle.Submit(done.ID, now.Add(time.Minute))
	require.NoError(t, err)

	status := model.AttemptSubmitted
	list, err := env.query.ListAttemptControl(repository.AttemptControlFilter{Status: &status})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.TotalCount)
	require.Equal(t, done.ID, list.Items[0].ID)
	require.Equal(t, string(model.AttemptSubmitted), list.Items[0].Status)
}
