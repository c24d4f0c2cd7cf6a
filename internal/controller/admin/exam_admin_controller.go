package admin

import (
	"net/http"

	"github.com/examguard/examguard/internal/controller"
	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ExamAdminController is the thin scheduling edge; full question-bank CRUD
// lives in the surrounding administration service.
type ExamAdminController struct {
	exams service.ExamService
}

func NewExamAdminController(exams service.ExamService) *ExamAdminController {
	return &ExamAdminController{exams: exams}
}

// CreateExam godoc
// @Summary (Admin) Schedule an exam
// @Tags Admin - Exams
// @Accept json
// @Produce json
// @Param body body dto.ExamCreateDTO true "Exam window, schedule mode, duration"
// @Success 201 {object} dto.ExamResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/exams [post]
func (c *ExamAdminController) CreateExam(ctx *gin.Context) {
	var req dto.ExamCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	exam, err := c.exams.CreateExam(req)
	if err != nil {
		log.Error().Err(err).Msg("CreateExam: service error")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, exam)
}

// ListExams godoc
// @Summary (Admin) List scheduled exams
// @Tags Admin - Exams
// @Produce json
// @Success 200 {array} dto.ExamResponseDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/exams [get]
func (c *ExamAdminController) ListExams(ctx *gin.Context) {
	exams, err := c.exams.ListExams()
	if err != nil {
		log.Error().Err(err).Msg("ListExams: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, exams)
}

// CreateCandidate godoc
// @Summary (Admin) Register a candidate
// @Tags Admin - Exams
// @Accept json
// @Produce json
// @Param body body dto.CandidateCreateDTO true "Candidate identity"
// @Success 201 {object} dto.CandidateResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/candidates [post]
func (c *ExamAdminController) CreateCandidate(ctx *gin.Context) {
	var req dto.CandidateCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	candidate, err := c.exams.CreateCandidate(req)
	if err != nil {
		log.Error().Err(err).Msg("CreateCandidate: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, candidate)
}
