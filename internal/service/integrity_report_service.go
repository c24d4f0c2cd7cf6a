package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/examguard/examguard/config"
	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// IntegrityReportService renders the admin-facing AI report for an attempt:
// the computed risk assessment plus a short narrative. With no API key, or on
// any model failure, it falls back to a deterministic narrative built from the
// triage reasons. Report generation never blocks attempt control.
type IntegrityReportService interface {
	GenerateReport(attemptID uint) (*dto.IntegrityReportDTO, error)
}

type integrityReportService struct {
	risk        RiskScoringService
	attemptRepo repository.AttemptRepository
	eventRepo   repository.ProctorEventRepository
	client      *genai.GenerativeModel
}

func NewIntegrityReportService(
	cfg *config.Config,
	risk RiskScoringService,
	attemptRepo repository.AttemptRepository,
	eventRepo repository.ProctorEventRepository,
) (IntegrityReportService, error) {
	svc := &integrityReportService{
		risk:        risk,
		attemptRepo: attemptRepo,
		eventRepo:   eventRepo,
	}
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Integrity reports will use the deterministic fallback narrative.")
		return svc, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	svc.client = client.GenerativeModel("gemini-1.5-flash")
	return svc, nil
}

func (s *integrityReportService) GenerateReport(attemptID uint) (*dto.IntegrityReportDTO, error) {
	assessment, err := s.risk.GetRiskAssessment(attemptID)
	if err != nil {
		return nil, err
	}
	counts, err := s.eventRepo.CountsByAttempt(attemptID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Event counts unavailable for report narrative")
		counts = map[model.ProctorEventType]int{}
	}
	reasons := TriageReasons(counts)

	report := &dto.IntegrityReportDTO{
		AttemptID:  attemptID,
		Assessment: *assessment,
	}

	if s.client != nil {
		narrative, err := s.generateNarrative(assessment, reasons)
		if err == nil {
			report.Narrative = narrative
			report.Generated = true
			return report, nil
		}
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Narrative generation failed, using fallback")
	}
	report.Narrative = fallbackNarrative(assessment, reasons)
	return report, nil
}

func (s *integrityReportService) generateNarrative(assessment *dto.RiskAssessmentDTO, reasons []string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("You are a proctoring analyst summarizing exam-integrity telemetry for an administrator.\n")
	prompt.WriteString("Write a short factual report (at most 120 words) on the following session. ")
	prompt.WriteString("Do not speculate beyond the listed signals and do not accuse the candidate of cheating; describe risk only.\n\n")
	prompt.WriteString(fmt.Sprintf("Overall risk score: %.1f/100 (%s)\n", assessment.OverallRiskScore, assessment.RiskLevel))
	prompt.WriteString(fmt.Sprintf("Sub-scores: face detection %.0f, eye tracking %.0f, behavior %.0f, environment %.0f\n",
		assessment.FaceDetectionScore, assessment.EyeTrackingScore, assessment.BehaviorScore, assessment.EnvironmentScore))
	if len(reasons) == 0 {
		prompt.WriteString("Flagged signals: none\n")
	} else {
		prompt.WriteString("Flagged signals: " + strings.Join(reasons, "; ") + "\n")
	}

	resp, err := s.client.GenerateContent(context.Background(), genai.Text(prompt.String()))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	narrative := strings.TrimSpace(out.String())
	if narrative == "" {
		return "", fmt.Errorf("gemini returned empty narrative")
	}
	return narrative, nil
}

func fallbackNarrative(assessment *dto.RiskAssessmentDTO, reasons []string) string {
	if len(reasons) == 0 {
		return fmt.Sprintf("Overall risk %s (%.1f/100). No integrity signals were recorded for this session.",
			assessment.RiskLevel, assessment.OverallRiskScore)
	}
	return fmt.Sprintf("Overall risk %s (%.1f/100). Recorded signals: %s.",
		assessment.RiskLevel, assessment.OverallRiskScore, strings.Join(reasons, "; "))
}
