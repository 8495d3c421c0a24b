package handlers

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type QnAHandler struct {
	qnaService *service.QnAService
}

func NewQnAHandler(qnaService *service.QnAService) *QnAHandler {
	return &QnAHandler{qnaService: qnaService}
}

func (h *QnAHandler) AskQuestion(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	var input service.AskQuestionInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	question, err := h.qnaService.Ask(userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			return httpx.BadRequest(c, "invalid_question", err.Error())
		}
		return httpx.Internal(c, "ask_question_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(question)
}

func (h *QnAHandler) GetQuestion(c *fiber.Ctx) error {
	questionID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_question", "Invalid question id")
	}

	question, err := h.qnaService.GetQuestion(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "question_not_found", "Question not found")
		}
		return httpx.Internal(c, "get_question_failed")
	}
	return c.JSON(question)
}

func (h *QnAHandler) ListQuestions(c *fiber.Ctx) error {
	questions, err := h.qnaService.ListQuestions(uint(c.QueryInt("cursor")), c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "list_questions_failed")
	}
	return c.JSON(fiber.Map{"questions": questions})
}

func (h *QnAHandler) DeleteQuestion(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	questionID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_question", "Invalid question id")
	}

	if err := h.qnaService.DeleteQuestion(questionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "question_not_found", "Question not found")
		}
		return httpx.Internal(c, "delete_question_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type answerRequest struct {
	Body string `json:"body"`
}

func (h *QnAHandler) AnswerQuestion(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	questionID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_question", "Invalid question id")
	}

	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	question, err := h.qnaService.Answer(questionID, userID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAnswer):
			return httpx.BadRequest(c, "invalid_answer", err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "question_not_found", "Question not found")
		default:
			return httpx.Internal(c, "answer_question_failed")
		}
	}
	return c.Status(fiber.StatusCreated).JSON(question)
}
