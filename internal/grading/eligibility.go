// Package grading holds the pure core of the service: deciding whether an
// attempt may start, reordering a quiz for presentation, and computing a
// score from submitted answers. Nothing in here touches storage or transport.
package grading

import (
	"time"

	"classquiz/internal/models"
)

// CanAttempt decides whether a new attempt may begin under the given
// assignment settings. It returns nil when allowed, otherwise an error whose
// kind names the reason (NotYetOpen, Closed, AttemptsExhausted). The caller
// supplies priorAttempts from storage; this function is a pure predicate.
func CanAttempt(settings models.QuizSettings, now time.Time, priorAttempts uint) error {
	if settings.StartAt != nil && now.Before(*settings.StartAt) {
		return models.NewError(models.KindNotYetOpen, "quiz is not open yet")
	}
	if settings.EndAt != nil && now.After(*settings.EndAt) {
		return models.NewError(models.KindClosed, "quiz is closed")
	}
	if settings.AttemptsAllowed != 0 && priorAttempts >= settings.AttemptsAllowed {
		return models.NewError(models.KindAttemptsExhausted, "no attempts remaining")
	}
	return nil
}
