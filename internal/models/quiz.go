package models

import (
	"time"

	"gorm.io/gorm"
)

// QuizStatus is advanced manually by the owning teacher, never automatically.
type QuizStatus string

const (
	StatusDraft     QuizStatus = "draft"
	StatusScheduled QuizStatus = "scheduled"
	StatusActive    QuizStatus = "active"
	StatusClosed    QuizStatus = "closed"
)

var statusRank = map[QuizStatus]int{
	StatusDraft:     0,
	StatusScheduled: 1,
	StatusActive:    2,
	StatusClosed:    3,
}

func (s QuizStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether next is a legal forward-only transition.
// Skipping stages is allowed (draft straight to active), going back is not.
func (s QuizStatus) CanAdvanceTo(next QuizStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

func (t QuestionType) Valid() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"`
	Status      QuizStatus     `json:"status" gorm:"not null;default:'draft'"`
	Questions   []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

type Question struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	QuizID    uint           `json:"quiz_id" gorm:"index;not null"`
	Text      string         `json:"text" gorm:"not null"`
	Position  int            `json:"position"`
	Type      QuestionType   `json:"type" gorm:"not null;default:'single'"`
	Options   []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// CorrectOptionIDs returns the authoritative answer key for the question.
func (q Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

type Option struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	QuestionID uint           `json:"question_id" gorm:"index;not null"`
	Text       string         `json:"text" gorm:"not null"`
	Position   int            `json:"position"`
	// IsCorrect is authoritative server-side data. Student-facing responses
	// go through ToDTO, which omits it unless results are revealed; the raw
	// model is only serialized for owners and the cache.
	IsCorrect bool `json:"is_correct" gorm:"not null;default:false"`
}
