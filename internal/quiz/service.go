package quiz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"classquiz/internal/models"
)

// Cache is the slice of the Redis layer this service needs.
type Cache interface {
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
	InvalidateQuiz(ctx context.Context, quizID uint) error
}

type Service struct {
	repo   *Repository
	cache  Cache
	logger *zap.Logger
}

func NewService(repo *Repository, cache Cache, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionInput struct {
	Text    string              `json:"text" validate:"required"`
	Type    models.QuestionType `json:"type" validate:"required,oneof=single multiple"`
	Options []OptionInput       `json:"options" validate:"required,min=2,dive"`
}

type QuizInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// buildQuestions turns inputs into models and enforces the authoring rules:
// every question has at least one correct option, and single-answer questions
// exactly one. Empty quizzes are rejected before this point by validation,
// which is what keeps the scorer's zero-question case unreachable.
func buildQuestions(inputs []QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, len(inputs))
	for i, in := range inputs {
		correctCount := 0
		options := make([]models.Option, len(in.Options))
		for j, opt := range in.Options {
			options[j] = models.Option{
				Text:      opt.Text,
				Position:  j,
				IsCorrect: opt.IsCorrect,
			}
			if opt.IsCorrect {
				correctCount++
			}
		}
		if correctCount == 0 {
			return nil, models.ErrValidation(fmt.Sprintf("question %d has no correct option", i+1))
		}
		if in.Type == models.QuestionSingle && correctCount != 1 {
			return nil, models.ErrValidation(fmt.Sprintf("single-answer question %d must have exactly one correct option", i+1))
		}
		questions[i] = models.Question{
			Text:     in.Text,
			Position: i,
			Type:     in.Type,
			Options:  options,
		}
	}
	return questions, nil
}

func (s *Service) Create(ctx context.Context, ownerID uint, input QuizInput) (*models.Quiz, error) {
	questions, err := buildQuestions(input.Questions)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     ownerID,
		Status:      models.StatusDraft,
		Questions:   questions,
	}
	if err := s.repo.CreateQuiz(quiz); err != nil {
		return nil, err
	}

	if err := s.cache.SetQuiz(ctx, quiz); err != nil {
		s.logger.Warn("cache quiz", zap.Uint("quiz_id", quiz.ID), zap.Error(err))
	}
	return quiz, nil
}

// Get returns a quiz to its owner, answer key included.
func (s *Service) Get(ctx context.Context, callerID, quizID uint) (*models.Quiz, error) {
	quiz, err := s.getCached(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the quiz owner")
	}
	return quiz, nil
}

// GetForGrading loads a quiz for internal use without an ownership check.
func (s *Service) GetForGrading(ctx context.Context, quizID uint) (*models.Quiz, error) {
	return s.getCached(ctx, quizID)
}

func (s *Service) getCached(ctx context.Context, quizID uint) (*models.Quiz, error) {
	if quiz, err := s.cache.GetQuiz(ctx, quizID); err == nil {
		return quiz, nil
	}

	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetQuiz(ctx, quiz); err != nil {
		s.logger.Warn("cache quiz", zap.Uint("quiz_id", quizID), zap.Error(err))
	}
	return quiz, nil
}

func (s *Service) ListMine(ownerID uint) ([]models.Quiz, error) {
	return s.repo.GetQuizzesByOwner(ownerID)
}

// Update replaces a draft quiz's content. Non-drafts are frozen: students may
// already be looking at them, and attempts must grade against a stable key.
func (s *Service) Update(ctx context.Context, callerID, quizID uint, input QuizInput) (*models.Quiz, error) {
	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the quiz owner")
	}
	if quiz.Status != models.StatusDraft {
		return nil, models.ErrValidation("only draft quizzes can be edited")
	}

	questions, err := buildQuestions(input.Questions)
	if err != nil {
		return nil, err
	}

	quiz.Name = input.Name
	quiz.Description = input.Description
	if err := s.repo.ReplaceContent(quiz, questions); err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetQuiz(ctx, fresh); err != nil {
		s.logger.Warn("cache quiz", zap.Uint("quiz_id", quizID), zap.Error(err))
	}
	return fresh, nil
}

func (s *Service) AdvanceStatus(ctx context.Context, callerID, quizID uint, next models.QuizStatus) (*models.Quiz, error) {
	if !next.Valid() {
		return nil, models.ErrValidation("unknown status")
	}

	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != callerID {
		return nil, models.ErrUnauthorized("not the quiz owner")
	}
	if !quiz.Status.CanAdvanceTo(next) {
		return nil, models.ErrValidation(fmt.Sprintf("cannot move quiz from %s to %s", quiz.Status, next))
	}

	if err := s.repo.UpdateStatus(quizID, next); err != nil {
		return nil, err
	}
	quiz.Status = next

	if err := s.cache.SetQuiz(ctx, quiz); err != nil {
		s.logger.Warn("cache quiz", zap.Uint("quiz_id", quizID), zap.Error(err))
	}
	return quiz, nil
}

func (s *Service) Delete(ctx context.Context, callerID, quizID uint) error {
	quiz, err := s.repo.GetQuizByID(quizID)
	if err != nil {
		return err
	}
	if quiz.OwnerID != callerID {
		return models.ErrUnauthorized("not the quiz owner")
	}

	if err := s.repo.DeleteQuiz(quizID); err != nil {
		return err
	}
	if err := s.cache.InvalidateQuiz(ctx, quizID); err != nil {
		s.logger.Warn("invalidate quiz cache", zap.Uint("quiz_id", quizID), zap.Error(err))
	}
	return nil
}

// VerifyOwnership backs the websocket results-feed authorization.
func (s *Service) VerifyOwnership(ctx context.Context, callerID, quizID uint) error {
	quiz, err := s.getCached(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.OwnerID != callerID {
		return models.ErrUnauthorized("not the quiz owner")
	}
	return nil
}
