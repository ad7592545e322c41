package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oes-platform/exam-service/internal/services"
	"github.com/oes-platform/exam-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
	}
}

// CreateExam creates a new exam
func (h *ExamHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Exam created", exam)
}

// ListExams returns the exam catalog; ?active=true narrows to active
// exams only
func (h *ExamHandler) ListExams(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	exams, err := h.examService.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Exams retrieved", exams)
}

// GetExam returns one exam; ?include=questions attaches its questions
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	var err error
	var exam interface{}
	if c.Query("include") == "questions" {
		exam, err = h.examService.GetByIDWithQuestions(c.Request.Context(), id)
	} else {
		exam, err = h.examService.GetByID(c.Request.Context(), id)
	}
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Exam retrieved", exam)
}

// UpdateExam applies a partial update to an exam's descriptive fields
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	h.LogRequest(c, "Updating exam")

	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.examService.Update(c.Request.Context(), id, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Exam updated", nil)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetExamActive toggles whether students can select the exam
func (h *ExamHandler) SetExamActive(c *gin.Context) {
	h.LogRequest(c, "Toggling exam activation")

	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.examService.SetActive(c.Request.Context(), id, req.Active, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Exam activation updated", nil)
}

// AddQuestion appends a question to an exam, bumping the exam's counters
// in the same transaction
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	h.LogRequest(c, "Adding question")

	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.examService.AddQuestion(c.Request.Context(), examID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Question added", question)
}

// DeleteQuestion removes a question and decrements the exam's counters
func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	h.LogRequest(c, "Deleting question")

	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := ParseUintParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.examService.DeleteQuestion(c.Request.Context(), examID, questionID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Question deleted", nil)
}

// RecountQuestions rebuilds the exam's question counters from the live
// question rows
func (h *ExamHandler) RecountQuestions(c *gin.Context) {
	h.LogRequest(c, "Recomputing exam counters")

	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.RecountQuestions(c.Request.Context(), examID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Counters recomputed", exam)
}

// ListQuestions returns the exam's questions in presentation order
func (h *ExamHandler) ListQuestions(c *gin.Context) {
	examID, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	questions, err := h.examService.ListQuestions(c.Request.Context(), examID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Questions retrieved", questions)
}
