package service

import (
	"testing"

	"github.com/examguard/examguard/internal/model"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportFallbackWithoutAPIKey(t *testing.T) {
	attemptRepo := newFakeAttemptRepo()
	eventRepo := newFakeEventRepo()
	attempt := &model.Attempt{ExamID: 1, CandidateID: 1, Status: model.AttemptInProgress, Version: 1}
	require.NoError(t, attemptRepo.Create(nil, attempt))
	eventRepo.record(attempt.ID, model.EventTabSwitched, 3)
	eventRepo.record(attempt.ID, model.EventFaceNotDetected, 2)

	risk := NewRiskScoringService(attemptRepo, eventRepo, testConfig())
	svc, err := NewIntegrityReportService(testConfig(), risk, attemptRepo, eventRepo)
	require.NoError(t, err)

	report, err := svc.GenerateReport(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, attempt.ID, report.AttemptID)
	require.False(t, report.Generated)
	require.Contains(t, report.Narrative, "switched tabs 3 times")
	require.Contains(t, report.Narrative, "face absent 2 times")
	require.InDelta(t, 12.8, report.Assessment.OverallRiskScore, 1e-9)
}

func TestGenerateReportFallbackCleanSession(t *testing.T) {
	attemptRepo := newFakeAttemptRepo()
	eventRepo := newFakeEventRepo()
	attempt := &model.Attempt{ExamID: 1, CandidateID: 1, Status: model.AttemptInProgress, Version: 1}
	require.NoError(t, attemptRepo.Create(nil, attempt))

	risk := NewRiskScoringService(attemptRepo, eventRepo, testConfig())
	svc, err := NewIntegrityReportService(testConfig(), risk, attemptRepo, eventRepo)
	require.NoError(t, err)

	report, err := svc.GenerateReport(attempt.ID)
	require.NoError(t, err)
	require.Contains(t, report.Narrative, "No integrity signals")
	require.Equal(t, string(RiskLow), report.Assessment.RiskLevel)
}

func TestGenerateReportUnknownAttempt(t *testing.T) {
	attemptRepo := newFakeAttemptRepo()
	eventRepo := newFakeEventRepo()
	risk := NewRiskScoringService(attemptRepo, eventRepo, testConfig())
	svc, err := NewIntegrityReportService(testConfig(), risk, attemptRepo, eventRepo)
	require.NoError(t, err)

	_, err = svc.GenerateReport(9000)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}
