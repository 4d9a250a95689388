package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt is one student's scored submission. It is written exactly once and
// never mutated afterwards; the score is whatever the answer key said at
// submission time.
//
// AttemptNumber is priorCount+1 at insert; the unique index turns two racing
// submissions into a constraint violation instead of a duplicate attempt.
type Attempt struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	AssignmentID  uint            `json:"assignment_id" gorm:"uniqueIndex:uix_attempts_seq;not null"`
	StudentID     uint            `json:"student_id" gorm:"uniqueIndex:uix_attempts_seq;index;not null"`
	AttemptNumber uint            `json:"attempt_number" gorm:"uniqueIndex:uix_attempts_seq;not null"`
	QuizID        uint            `json:"quiz_id" gorm:"index;not null"`
	StartedAt     time.Time       `json:"started_at"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	Score         float64         `json:"score"`
	Passing       bool            `json:"passing"`
	Completed     bool            `json:"completed"`
	Answers       []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

type AttemptAnswer struct {
	ID                uint                      `json:"id" gorm:"primaryKey"`
	AttemptID         uint                      `json:"attempt_id" gorm:"index;not null"`
	QuestionID        uint                      `json:"question_id" gorm:"not null"`
	SelectedOptionIDs datatypes.JSONSlice[uint] `json:"selected_option_ids"`
}

// GradeRow is the flattened shape the grade reports are read into.
type GradeRow struct {
	AttemptID   uint      `json:"attempt_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	QuizID      uint      `json:"quiz_id"`
	QuizName    string    `json:"quiz_name"`
	Score       float64   `json:"score"`
	Passing     bool      `json:"passing"`
	CompletedAt time.Time `json:"completed_at"`
}
