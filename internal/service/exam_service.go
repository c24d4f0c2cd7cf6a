package service

import (
	"fmt"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

// ExamService is the thin collaborator edge for exam scheduling and candidate
// registration. The full question-bank and user administration live elsewhere.
type ExamService interface {
	CreateExam(req dto.ExamCreateDTO) (*dto.ExamResponseDTO, error)
	ListExams() ([]dto.ExamResponseDTO, error)
	CreateCandidate(req dto.CandidateCreateDTO) (*dto.CandidateResponseDTO, error)
}

type examService struct {
	examRepo      repository.ExamRepository
	candidateRepo repository.CandidateRepository
}

func NewExamService(examRepo repository.ExamRepository, candidateRepo repository.CandidateRepository) ExamService {
	return &examService{examRepo: examRepo, candidateRepo: candidateRepo}
}

func (s *examService) CreateExam(req dto.ExamCreateDTO) (*dto.ExamResponseDTO, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("exam end time must be after its start time")
	}
	exam := model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		ScheduleMode:    model.ScheduleMode(req.ScheduleMode),
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		GraceMinutes:    req.GraceMinutes,
		DurationSeconds: req.DurationSeconds,
		MaxAttempts:     req.MaxAttempts,
	}
	if err := s.examRepo.Create(&exam); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create exam")
		return nil, err
	}
	var resp dto.ExamResponseDTO
	copier.Copy(&resp, &exam)
	resp.ScheduleMode = string(exam.ScheduleMode)
	return &resp, nil
}

func (s *examService) ListExams() ([]dto.ExamResponseDTO, error) {
	exams, err := s.examRepo.FindAll()
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ExamResponseDTO, 0, len(exams))
	for i := range exams {
		var item dto.ExamResponseDTO
		copier.Copy(&item, &exams[i])
		item.ScheduleMode = string(exams[i].ScheduleMode)
		resp = append(resp, item)
	}
	return resp, nil
}

func (s *examService) CreateCandidate(req dto.CandidateCreateDTO) (*dto.CandidateResponseDTO, error) {
	candidate := model.Candidate{FullName: req.FullName, Email: req.Email, BatchID: req.BatchID}
	if err := s.candidateRepo.Create(&candidate); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to create candidate")
		return nil, err
	}
	var resp dto.CandidateResponseDTO
	copier.Copy(&resp, &candidate)
	return &resp, nil
}
