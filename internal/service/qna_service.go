package service

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/validation"
)

var (
	ErrInvalidQuestion = errors.New("question title is empty or too long")
	ErrInvalidAnswer   = errors.New("answer body must not be empty")
)

type QnAService struct {
	questionRepo repository.QuestionRepositoryInterface
}

func NewQnAService(questionRepo repository.QuestionRepositoryInterface) *QnAService {
	return &QnAService{questionRepo: questionRepo}
}

type AskQuestionInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tags  string `json:"tags"`
}

func (s *QnAService) Ask(authorID uint, input AskQuestionInput) (*models.Question, error) {
	if !validation.ValidateTitle(input.Title) {
		return nil, ErrInvalidQuestion
	}
	question := &models.Question{
		AuthorID: authorID,
		Title:    validation.NormalizeContent(input.Title),
		Body:     validation.NormalizeContent(input.Body),
		Tags:     input.Tags,
	}
	if err := s.questionRepo.Create(question); err != nil {
		return nil, err
	}
	return s.questionRepo.FindByID(question.ID)
}

func (s *QnAService) GetQuestion(id uint) (*models.Question, error) {
	return s.questionRepo.FindByID(id)
}

func (s *QnAService) ListQuestions(cursor uint, limit int) ([]models.Question, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.questionRepo.ListRecent(cursor, limit)
}

func (s *QnAService) DeleteQuestion(questionID, authorID uint) error {
	return s.questionRepo.Delete(questionID, authorID)
}

func (s *QnAService) Answer(questionID, authorID uint, body string) (*models.Question, error) {
	body = validation.NormalizeContent(body)
	if body == "" {
		return nil, ErrInvalidAnswer
	}
	// Verify the question exists before attaching.
	if _, err := s.questionRepo.FindByID(questionID); err != nil {
		return nil, err
	}
	answer := &models.Answer{
		QuestionID: questionID,
		AuthorID:   authorID,
		Body:       body,
	}
	if err := s.questionRepo.CreateAnswer(answer); err != nil {
		return nil, err
	}
	return s.questionRepo.FindByID(questionID)
}
