package service

import (
	"sync"
	"testing"
	"time"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[uint]*model.Candidate
	nextID     uint
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: map[uint]*model.Candidate{}}
}

func (r *fakeCandidateRepo) Create(candidate *model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	candidate.ID = r.nextID
	cp := *candidate
	r.candidates[candidate.ID] = &cp
	return nil
}

func (r *fakeCandidateRepo) FindByID(id uint) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.candidates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func TestCreateExamValidatesWindow(t *testing.T) {
	svc := NewExamService(newFakeExamRepo(), newFakeCandidateRepo())
	start := baseTime()

	_, err := svc.CreateExam(dto.ExamCreateDTO{
		Title:           "Backwards",
		ScheduleMode:    "flexible",
		StartAt:         start,
		EndAt:           start.Add(-time.Hour),
		DurationSeconds: 3600,
	})
	require.Error(t, err)
}

func TestCreateAndListExams(t *testing.T) {
	svc := NewExamService(newFakeExamRepo(), newFakeCandidateRepo())
	start := baseTime()

	created, err := svc.CreateExam(dto.ExamCreateDTO{
		Title:           "Networks Midterm",
		ScheduleMode:    "fixed",
		StartAt:         start,
		EndAt:           start.Add(4 * time.Hour),
		GraceMinutes:    15,
		DurationSeconds: 5400,
		MaxAttempts:     2,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "fixed", created.ScheduleMode)
	require.Equal(t, 5400, created.DurationSeconds)

	exams, err := svc.ListExams()
	require.NoError(t, err)
	require.Len(t, exams, 1)
	require.Equal(t, "Networks Midterm", exams[0].Title)
}

func TestCreateCandidate(t *testing.T) {
	svc := NewExamService(newFakeExamRepo(), newFakeCandidateRepo())

	candidate, err := svc.CreateCandidate(dto.CandidateCreateDTO{
		FullName: "Grace Hopper",
		Email:    "grace@example.edu",
	})
	require.NoError(t, err)
	require.NotZero(t, candidate.ID)
	require.Equal(t, "Grace Hopper", candidate.FullName)
}
