package quiz

import (
	"errors"

	"gorm.io/gorm"

	"classquiz/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *Repository) CreateQuiz(quiz *models.Quiz) error {
	if err := r.db.Create(quiz).Error; err != nil {
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) GetQuizByID(quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.
		Preload("Questions", orderByPosition).
		Preload("Questions.Options", orderByPosition).
		First(&quiz, quizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound("quiz not found")
		}
		return nil, models.ErrInternal(err)
	}
	return &quiz, nil
}

func (r *Repository) GetQuizzesByOwner(ownerID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, models.ErrInternal(err)
	}
	return quizzes, nil
}

// ReplaceContent swaps a quiz's name, description and full question set in one
// transaction. Old questions are hard-deleted; only drafts are editable, so no
// attempt can reference them yet.
func (r *Repository) ReplaceContent(quiz *models.Quiz, questions []models.Question) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&models.Question{}).Error; err != nil {
				return err
			}
		}

		quiz.Questions = questions
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(quiz).Error
	})
	if err != nil {
		return models.ErrInternal(err)
	}
	return nil
}

func (r *Repository) UpdateStatus(quizID uint, status models.QuizStatus) error {
	if err := r.db.Model(&models.Quiz{}).Where("id = ?", quizID).Update("status", status).Error; err != nil {
		return models.ErrInternal(err)
	}
	return nil
}

// DeleteQuiz soft-deletes the quiz and drops its assignments so it disappears
// from student listings immediately. Existing attempts keep their scores.
func (r *Repository) DeleteQuiz(quizID uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, quizID).Error
	})
	if err != nil {
		return models.ErrInternal(err)
	}
	return nil
}
