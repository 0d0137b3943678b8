package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ptmquan/certprep/internal/dto"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/middleware"
	"github.com/ptmquan/certprep/internal/service"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type TestSessionController struct {
	sessionService    service.SessionService
	submissionService service.SubmissionService
	certService       service.CertificateService
}

func NewTestSessionController(
	sessionService service.SessionService,
	submissionService service.SubmissionService,
	certService service.CertificateService,
) *TestSessionController {
	return &TestSessionController{
		sessionService:    sessionService,
		submissionService: submissionService,
		certService:       certService,
	}
}

// GetSession godoc
// @Summary (Candidate) Resume or create the test session
// @Description Resolves the candidate's exam (assigned or random draw) and returns the resumable session: lobby or running, with answers and live remaining time. A stale persisted session is discarded in favor of a fresh draw.
// @Tags Candidate - Test Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionViewDTO
// @Failure 409 {object} dto.ErrorResponse "Exam window not open / expired"
// @Failure 500 {object} dto.ErrorResponse
// @Router /exam/session [get]
func (c *TestSessionController) GetSession(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	view, err := c.sessionService.Resume(candidateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// StartSession godoc
// @Summary (Candidate) Start the countdown
// @Description Leaves the lobby and anchors the time budget at the current instant. Starting an already-running session resumes it; the clock never resets.
// @Tags Candidate - Test Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionViewDTO
// @Failure 404 {object} dto.ErrorResponse "No active session"
// @Failure 500 {object} dto.ErrorResponse
// @Router /exam/session/start [post]
func (c *TestSessionController) StartSession(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	view, err := c.sessionService.Start(candidateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// SubmitAnswer godoc
// @Summary (Candidate) Record one answer
// @Description Records a selected letter for a question in the frozen set and persists the session. When the time budget is exhausted the submission fires automatically.
// @Tags Candidate - Test Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param answer body dto.AnswerRequestDTO true "Question and selected letter"
// @Success 200 {object} dto.SessionViewDTO
// @Success 201 {object} dto.AttemptDetailDTO "Budget expired, attempt auto-submitted"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "No active session"
// @Router /exam/session/answers [put]
func (c *TestSessionController) SubmitAnswer(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)

	var req dto.AnswerRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	view, expired, err := c.sessionService.Answer(candidateID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if expired {
		c.autoSubmit(ctx, candidateID)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// Checkpoint godoc
// @Summary (Candidate) Persist a periodic checkpoint
// @Description Whole-state snapshot pushed on answer changes and on a fixed interval while running. Idempotent last-write-wins; safe to replay after an offline period.
// @Tags Candidate - Test Session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param checkpoint body dto.CheckpointRequestDTO true "Answers, cursor and client-side remaining time"
// @Success 200 {object} dto.SessionViewDTO
// @Success 201 {object} dto.AttemptDetailDTO "Budget expired, attempt auto-submitted"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "No active session"
// @Router /exam/session [put]
func (c *TestSessionController) Checkpoint(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)

	var req dto.CheckpointRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	view, expired, err := c.sessionService.Checkpoint(candidateID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if expired {
		c.autoSubmit(ctx, candidateID)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// SubmitTest godoc
// @Summary (Candidate) Submit the test
// @Description Grades the session, persists the attempt and profile durably, then removes the session. Duplicate submissions are rejected, never re-scored.
// @Tags Candidate - Test Session
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse "No active session"
// @Failure 409 {object} dto.ErrorResponse "Already completed / submission in flight"
// @Failure 502 {object} dto.ErrorResponse "Submission failed, do not retake"
// @Router /exam/session/submit [post]
func (c *TestSessionController) SubmitTest(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	detail, err := c.submissionService.Submit(candidateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, detail)
}

// GetAttempts godoc
// @Summary (Candidate) List past attempts
// @Tags Candidate - Test Session
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /exam/attempts [get]
func (c *TestSessionController) GetAttempts(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	attempts, err := c.submissionService.GetAttempts(candidateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GetAttemptDetail godoc
// @Summary (Candidate) Get one attempt with graded answers
// @Tags Candidate - Test Session
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /exam/attempts/{attempt_id} [get]
func (c *TestSessionController) GetAttemptDetail(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	attemptID, err := strconv.ParseUint(ctx.Param("attempt_id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid attempt ID format"})
		return
	}
	detail, err := c.submissionService.GetAttemptDetail(candidateID, uint(attemptID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetCertificate godoc
// @Summary (Candidate) Certificate status
// @Description Idempotent check-and-issue: flips issuance once the 48h delay has elapsed, otherwise reports processing or not eligible.
// @Tags Candidate - Certificate
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CertificateStatusDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /certificate [get]
func (c *TestSessionController) GetCertificate(ctx *gin.Context) {
	candidateID := ctx.GetString(middleware.ContextCandidateID)
	status, err := c.certService.CheckAndIssue(candidateID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// autoSubmit fires the timer-expiry submission path. The in-flight guard in
// the submission service makes a race with a manual submit harmless.
func (c *TestSessionController) autoSubmit(ctx *gin.Context, candidateID string) {
	detail, err := c.submissionService.Submit(candidateID)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionInFlight) || errors.Is(err, service.ErrAlreadyCompleted) {
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Time is up; your test is being submitted"})
			return
		}
		respondError(ctx, err)
		return
	}
	log.Info().Str("candidate_id", candidateID).Msg("time budget exhausted, attempt auto-submitted")
	ctx.JSON(http.StatusCreated, detail)
}

// respondError maps the service error surface to specific user-facing
// messages. Nothing here is allowed to degrade into a generic failure.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotYetAvailable):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Your assigned exam is not yet available"})
	case errors.Is(err, service.ErrExpired):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Your assigned exam's availability window has expired"})
	case errors.Is(err, service.ErrAlreadyCompleted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "You have already completed this test"})
	case errors.Is(err, service.ErrSubmissionInFlight):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Your submission is already being processed"})
	case errors.Is(err, service.ErrNoActiveSession):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "No active test session"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, service.ErrEmptyQuestionSet):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "No questions are available for this test"})
	case errors.Is(err, service.ErrSubmissionFailed):
		ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "Submission failed, do not retake; contact support"})
	case errors.Is(err, engine.ErrNotStarted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "The test has not been started"})
	case errors.Is(err, engine.ErrAlreadyStarted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "The test is already running"})
	case errors.Is(err, engine.ErrUnknownQuestion), errors.Is(err, engine.ErrInvalidChoice):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Msg("unhandled service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal error", Details: []string{err.Error()}})
	}
}
