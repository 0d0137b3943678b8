package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// AdminExamController is the surface the assignment/content process talks
// to: bank questions, exam configurations and candidate assignments. The
// session engine itself only ever reads what is created here.
type AdminExamController struct {
	questionRepo   repository.QuestionRepository
	assignmentRepo repository.ExamAssignmentRepository
}

func NewAdminExamController(questionRepo repository.QuestionRepository, assignmentRepo repository.ExamAssignmentRepository) *AdminExamController {
	return &AdminExamController{questionRepo: questionRepo, assignmentRepo: assignmentRepo}
}

// CreateQuestion godoc
// @Summary (Admin) Add a bank question
// @Tags Admin - Question Bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param question body dto.QuestionCreateDTO true "Question with four choices and the correct letter"
// @Success 201 {object} dto.QuestionResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/questions [post]
func (c *AdminExamController) CreateQuestion(ctx *gin.Context) {
	var req dto.QuestionCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateQuestion: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	question := model.Question{
		Prompt:        req.Prompt,
		ChoiceA:       req.ChoiceA,
		ChoiceB:       req.ChoiceB,
		ChoiceC:       req.ChoiceC,
		ChoiceD:       req.ChoiceD,
		CorrectChoice: req.CorrectChoice,
		Category:      req.Category,
		Active:        true,
	}
	if req.Active != nil {
		question.Active = *req.Active
	}
	if err := c.questionRepo.Create(&question); err != nil {
		log.Error().Err(err).Msg("Admin CreateQuestion: repository error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create question"})
		return
	}

	var resp dto.QuestionResponseDTO
	if err := copier.Copy(&resp, &question); err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to prepare response"})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// ListQuestions godoc
// @Summary (Admin) List active bank questions
// @Tags Admin - Question Bank
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.QuestionResponseDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/questions [get]
func (c *AdminExamController) ListQuestions(ctx *gin.Context) {
	questions, err := c.questionRepo.FindActive()
	if err != nil {
		log.Error().Err(err).Msg("Admin ListQuestions: repository error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to list questions"})
		return
	}
	resp := make([]dto.QuestionResponseDTO, 0, len(questions))
	for _, q := range questions {
		var item dto.QuestionResponseDTO
		if err := copier.Copy(&item, &q); err != nil {
			log.Error().Err(err).Uint("question_id", q.ID).Msg("Admin ListQuestions: copy failed")
			continue
		}
		resp = append(resp, item)
	}
	ctx.JSON(http.StatusOK, resp)
}

// CreateExamConfiguration godoc
// @Summary (Admin) Create an exam configuration
// @Tags Admin - Exam Configurations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param configuration body dto.ExamConfigurationCreateDTO true "Question subset, time limit, passing score, optional window"
// @Success 201 {object} dto.ExamConfigurationResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/exam-configs [post]
func (c *AdminExamController) CreateExamConfiguration(ctx *gin.Context) {
	var req dto.ExamConfigurationCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateExamConfiguration: failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if req.OpensAt != nil && req.ClosesAt != nil && req.ClosesAt.Before(*req.OpensAt) {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Availability window closes before it opens"})
		return
	}

	cfg := model.ExamConfiguration{
		Name:         req.Name,
		QuestionIDs:  datatypes.NewJSONSlice(req.QuestionIDs),
		TimeLimitSec: req.TimeLimitSec,
		PassingScore: req.PassingScore,
		OpensAt:      req.OpensAt,
		ClosesAt:     req.ClosesAt,
	}
	if err := c.assignmentRepo.CreateConfiguration(&cfg); err != nil {
		log.Error().Err(err).Msg("Admin CreateExamConfiguration: repository error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create exam configuration"})
		return
	}

	ctx.JSON(http.StatusCreated, dto.ExamConfigurationResponseDTO{
		ID:           cfg.ID,
		Name:         cfg.Name,
		QuestionIDs:  req.QuestionIDs,
		TimeLimitSec: cfg.TimeLimitSec,
		PassingScore: cfg.PassingScore,
		OpensAt:      cfg.OpensAt,
		ClosesAt:     cfg.ClosesAt,
		CreatedAt:    cfg.CreatedAt,
	})
}

// AssignExam godoc
// @Summary (Admin) Assign an exam configuration to a candidate
// @Tags Admin - Exam Configurations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Exam configuration ID"
// @Param assignment body dto.AssignExamDTO true "Candidate to assign"
// @Success 201 {object} dto.AssignedExamResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/exam-configs/{id}/assign [post]
func (c *AdminExamController) AssignExam(ctx *gin.Context) {
	cfgID, err := parseUintParam(ctx, "id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid exam configuration ID"})
		return
	}

	var req dto.AssignExamDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	if _, err := c.assignmentRepo.FindConfigurationByID(cfgID); err != nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Exam configuration not found"})
		return
	}

	assignment := model.AssignedExam{
		CandidateID:         req.CandidateID,
		ExamConfigurationID: cfgID,
	}
	if err := c.assignmentRepo.Assign(&assignment); err != nil {
		log.Error().Err(err).Str("candidate_id", req.CandidateID).Msg("Admin AssignExam: repository error")
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Failed to assign exam", Details: []string{err.Error()}})
		return
	}

	var resp dto.AssignedExamResponseDTO
	if err := copier.Copy(&resp, &assignment); err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to prepare response"})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}
