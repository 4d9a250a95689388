package models

import (
	"time"

	"gorm.io/gorm"
)

type Group struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"`
	InviteCode  string         `json:"invite_code" gorm:"uniqueIndex;not null"`
	Members     []User         `json:"members,omitempty" gorm:"many2many:group_members"`
	Assignments []Assignment   `json:"assignments,omitempty" gorm:"foreignKey:GroupID"`
}

// QuizSettings travels with an assignment, not with the quiz: the same quiz
// assigned to two groups can carry different windows, shuffling and quotas.
type QuizSettings struct {
	StartAt          *time.Time `json:"start_at,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	TimeLimitMinutes uint       `json:"time_limit_minutes"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	ShuffleOptions   bool       `json:"shuffle_options"`
	ShowResults      bool       `json:"show_results"`
	// AttemptsAllowed of zero means unlimited.
	AttemptsAllowed uint     `json:"attempts_allowed"`
	PassingScore    *float64 `json:"passing_score,omitempty"`
}

// Assignment pairs a quiz with a group under one settings instance.
// Assignments are hard-deleted so the (group, quiz) uniqueness stays honest.
type Assignment struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	GroupID   uint         `json:"group_id" gorm:"uniqueIndex:uix_assignments_group_quiz;not null"`
	QuizID    uint         `json:"quiz_id" gorm:"uniqueIndex:uix_assignments_group_quiz;not null"`
	Settings  QuizSettings `json:"settings" gorm:"embedded;embeddedPrefix:setting_"`
	Group     *Group       `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	Quiz      *Quiz        `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}
