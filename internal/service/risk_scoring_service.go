package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/examguard/examguard/config"
	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RiskLevel buckets the overall integrity risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Confidence of an assessment. Low means event data could not be read and the
// clean default was served; risk scoring never gates exam-taking.
const (
	ConfidenceFull = "full"
	ConfidenceLow  = "low"
)

// Penalty weights per sub-score category. Each table is total over the event
// codes it covers; codes absent from a table contribute nothing to that
// category. Unrecognized codes never reach here: ingestion rejects them.
var (
	faceWeights = map[model.ProctorEventType]float64{
		model.EventFaceNotDetected: 8,
		model.EventMultipleFaces:   12,
		model.EventCameraBlocked:   10,
		model.EventWebcamDenied:    25,
	}
	eyeWeights = map[model.ProctorEventType]float64{
		model.EventHeadTurned:     7,
		model.EventFaceOutOfFrame: 6,
	}
	behaviorWeights = map[model.ProctorEventType]float64{
		model.EventTabSwitched:  8,
		model.EventWindowBlur:   4,
		model.EventCopyAttempt:  10,
		model.EventPasteAttempt: 10,
		model.EventRightClick:   5,
	}
	environmentWeights = map[model.ProctorEventType]float64{
		model.EventFullscreenExited: 10,
		model.EventCameraBlocked:    12,
		model.EventSnapshotFailed:   8,
	}
)

// Overall blend: sub-score deficits weighted by category.
const (
	overallFaceWeight        = 0.35
	overallBehaviorWeight    = 0.30
	overallEyeWeight         = 0.20
	overallEnvironmentWeight = 0.15
)

// RiskScore is the deterministic result of scoring one attempt's event counts.
type RiskScore struct {
	FaceDetection float64
	EyeTracking   float64
	Behavior      float64
	Environment   float64
	Overall       float64
	Level         RiskLevel
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func categoryScore(counts map[model.ProctorEventType]int, weights map[model.ProctorEventType]float64) float64 {
	penalty := 0.0
	for eventType, weight := range weights {
		penalty += weight * float64(counts[eventType])
	}
	return clampScore(100 - penalty)
}

// ScoreEventCounts is a pure function: identical counts always produce
// identical scores.
func ScoreEventCounts(counts map[model.ProctorEventType]int) RiskScore {
	score := RiskScore{
		FaceDetection: categoryScore(counts, faceWeights),
		EyeTracking:   categoryScore(counts, eyeWeights),
		Behavior:      categoryScore(counts, behaviorWeights),
		Environment:   categoryScore(counts, environmentWeights),
	}
	score.Overall = clampScore(
		overallFaceWeight*(100-score.FaceDetection) +
			overallBehaviorWeight*(100-score.Behavior) +
			overallEyeWeight*(100-score.EyeTracking) +
			overallEnvironmentWeight*(100-score.Environment))
	score.Level = levelFor(score.Overall)
	return score
}

func levelFor(overall float64) RiskLevel {
	switch {
	case overall <= 20:
		return RiskLow
	case overall <= 50:
		return RiskMedium
	case overall <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// reasonFormats renders the per-category rationale shown to triage reviewers.
var reasonFormats = map[model.ProctorEventType]string{
	model.EventFaceNotDetected:  "face absent %d times",
	model.EventMultipleFaces:    "multiple faces detected %d times",
	model.EventCameraBlocked:    "camera blocked %d times",
	model.EventWebcamDenied:     "webcam access denied %d times",
	model.EventHeadTurned:       "head turned away %d times",
	model.EventFaceOutOfFrame:   "face out of frame %d times",
	model.EventTabSwitched:      "switched tabs %d times",
	model.EventWindowBlur:       "window lost focus %d times",
	model.EventCopyAttempt:      "copy attempted %d times",
	model.EventPasteAttempt:     "paste attempted %d times",
	model.EventRightClick:       "right-clicked %d times",
	model.EventFullscreenExited: "exited fullscreen %d times",
	model.EventSnapshotFailed:   "snapshot capture failed %d times",
}

// TriageReasons lists the flagged signals for an attempt in stable (event
// code) order.
func TriageReasons(counts map[model.ProctorEventType]int) []string {
	types := make([]model.ProctorEventType, 0, len(counts))
	for eventType, count := range counts {
		if count > 0 && eventType.Valid() {
			types = append(types, eventType)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	reasons := make([]string, 0, len(types))
	for _, eventType := range types {
		reasons = append(reasons, fmt.Sprintf(reasonFormats[eventType], counts[eventType]))
	}
	return reasons
}

// RiskScoringService computes assessments on demand from the proctor event
// log. It never mutates attempt state.
type RiskScoringService interface {
	GetRiskAssessment(attemptID uint) (*dto.RiskAssessmentDTO, error)
	GetTriageRecommendations(topN int) ([]dto.TriageRecommendationDTO, error)
}

type riskScoringService struct {
	attemptRepo repository.AttemptRepository
	eventRepo   repository.ProctorEventRepository
	poolLimit   int
	clock       func() time.Time
}

func NewRiskScoringService(attemptRepo repository.AttemptRepository, eventRepo repository.ProctorEventRepository, cfg *config.Config) RiskScoringService {
	return &riskScoringService{
		attemptRepo: attemptRepo,
		eventRepo:   eventRepo,
		poolLimit:   cfg.Proctoring.TriagePoolLimit,
		clock:       time.Now,
	}
}

func (s *riskScoringService) GetRiskAssessment(attemptID uint) (*dto.RiskAssessmentDTO, error) {
	if _, err := s.attemptRepo.FindByID(attemptID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	confidence := ConfidenceFull
	counts, err := s.eventRepo.CountsByAttempt(attemptID)
	if err != nil {
		// Degrade rather than fail: a broken event store must never block an
		// attempt-control operation.
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Proctor event counts unavailable, serving low-confidence assessment")
		counts = map[model.ProctorEventType]int{}
		confidence = ConfidenceLow
	}
	assessment := assessmentToDTO(attemptID, ScoreEventCounts(counts), confidence, s.clock())
	return &assessment, nil
}

func (s *riskScoringService) GetTriageRecommendations(topN int) ([]dto.TriageRecommendationDTO, error) {
	if topN < 1 {
		topN = 10
	}
	pool, err := s.attemptRepo.ListActiveWithExam()
	if err != nil {
		return nil, err
	}
	if s.poolLimit > 0 && len(pool) > s.poolLimit {
		pool = pool[:s.poolLimit]
	}
	ids := make([]uint, 0, len(pool))
	for i := range pool {
		ids = append(ids, pool[i].ID)
	}
	grouped, err := s.eventRepo.CountsForAttempts(ids)
	if err != nil {
		log.Error().Err(err).Msg("Triage event counts unavailable, returning empty recommendations")
		return []dto.TriageRecommendationDTO{}, nil
	}

	recs := make([]dto.TriageRecommendationDTO, 0, len(pool))
	for i := range pool {
		attempt := &pool[i]
		counts := grouped[attempt.ID]
		score := ScoreEventCounts(counts)
		recs = append(recs, dto.TriageRecommendationDTO{
			AttemptID:     attempt.ID,
			CandidateName: attempt.Candidate.FullName,
			ExamTitle:     attempt.Exam.Title,
			RiskScore:     score.Overall,
			RiskLevel:     string(score.Level),
			Reasons:       TriageReasons(counts),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RiskScore > recs[j].RiskScore })
	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

func assessmentToDTO(attemptID uint, score RiskScore, confidence string, at time.Time) dto.RiskAssessmentDTO {
	return dto.RiskAssessmentDTO{
		AttemptID:          attemptID,
		FaceDetectionScore: score.FaceDetection,
		EyeTrackingScore:   score.EyeTracking,
		BehaviorScore:      score.Behavior,
		EnvironmentScore:   score.Environment,
		OverallRiskScore:   score.Overall,
		RiskLevel:          string(score.Level),
		Confidence:         confidence,
		ComputedAt:         at,
	}
}
