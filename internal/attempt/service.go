package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"classquiz/internal/grading"
	"classquiz/internal/models"
)

// submitGrace covers clock skew and in-flight time on timed quizzes.
const submitGrace = 30 * time.Second

// Broadcaster pushes grading events to the live results feed.
type Broadcaster interface {
	BroadcastAttemptGraded(quizID uint, data interface{})
}

// GradeInvalidator drops a group's cached grade report after a submission.
type GradeInvalidator interface {
	InvalidateGroupGrades(ctx context.Context, groupID uint) error
}

type Service struct {
	repo   *Repository
	hub    Broadcaster
	grades GradeInvalidator
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo *Repository, hub Broadcaster, grades GradeInvalidator, logger *zap.Logger) *Service {
	return &Service{repo: repo, hub: hub, grades: grades, logger: logger, now: time.Now}
}

// NewServiceWithClock is test-only for deterministic eligibility windows.
func NewServiceWithClock(repo *Repository, hub Broadcaster, grades GradeInvalidator, logger *zap.Logger, now func() time.Time) *Service {
	s := NewService(repo, hub, grades, logger)
	s.now = now
	return s
}

// AvailableQuiz annotates an assignment with the student's standing in it.
type AvailableQuiz struct {
	AssignmentID uint                `json:"assignment_id"`
	QuizID       uint                `json:"quiz_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Status       models.QuizStatus   `json:"status"`
	Settings     models.QuizSettings `json:"settings"`
	AttemptsUsed uint                `json:"attempts_used"`
	Availability string              `json:"availability"`
	CanAttempt   bool                `json:"can_attempt"`
}

func availabilityLabel(settings models.QuizSettings, now time.Time) string {
	// Date window only; quota exhaustion is reported via CanAttempt.
	window := models.QuizSettings{StartAt: settings.StartAt, EndAt: settings.EndAt}
	switch models.KindOf(grading.CanAttempt(window, now, 0)) {
	case models.KindNotYetOpen:
		return "not_yet_open"
	case models.KindClosed:
		return "closed"
	default:
		return "open"
	}
}

func (s *Service) ListAvailable(studentID uint) ([]AvailableQuiz, error) {
	assignments, err := s.repo.ListAssignmentsForStudent(studentID)
	if err != nil {
		return nil, err
	}

	assignmentIDs := make([]uint, len(assignments))
	for i, a := range assignments {
		assignmentIDs[i] = a.ID
	}
	counts, err := s.repo.CountAttemptsByAssignment(studentID, assignmentIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]AvailableQuiz, 0, len(assignments))
	for _, a := range assignments {
		if a.Quiz == nil {
			continue
		}
		used := counts[a.ID]
		out = append(out, AvailableQuiz{
			AssignmentID: a.ID,
			QuizID:       a.QuizID,
			Name:         a.Quiz.Name,
			Description:  a.Quiz.Description,
			Status:       a.Quiz.Status,
			Settings:     a.Settings,
			AttemptsUsed: used,
			Availability: availabilityLabel(a.Settings, now),
			CanAttempt:   grading.CanAttempt(a.Settings, now, used) == nil,
		})
	}
	return out, nil
}

// loadForStudent fetches an assignment and checks the student can see it at
// all: enrolled in the group, quiz present and past draft. Failures read as
// NotFound so outsiders learn nothing.
func (s *Service) loadForStudent(assignmentID, studentID uint) (*models.Assignment, error) {
	assignment, err := s.repo.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Quiz == nil || assignment.Quiz.Status == models.StatusDraft {
		return nil, models.ErrNotFound("assignment not found")
	}

	member, err := s.repo.IsGroupMember(assignment.GroupID, studentID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.ErrNotFound("assignment not found")
	}
	return assignment, nil
}

// Presentation is the quiz as served for taking: shuffled per settings, with
// the answer key stripped.
type Presentation struct {
	AssignmentID     uint                 `json:"assignment_id"`
	QuizID           uint                 `json:"quiz_id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	TimeLimitMinutes uint                 `json:"time_limit_minutes"`
	AttemptsAllowed  uint                 `json:"attempts_allowed"`
	AttemptsUsed     uint                 `json:"attempts_used"`
	Questions        []models.QuestionDTO `json:"questions"`
}

func (s *Service) GetPresentation(assignmentID, studentID uint) (*Presentation, error) {
	assignment, err := s.loadForStudent(assignmentID, studentID)
	if err != nil {
		return nil, err
	}

	used, err := s.repo.CountAttempts(assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	if err := grading.CanAttempt(assignment.Settings, s.now(), used); err != nil {
		return nil, err
	}

	presented := grading.Present(assignment.Quiz.Questions, assignment.Settings)
	questions := make([]models.QuestionDTO, len(presented))
	for i, q := range presented {
		// Correctness is never revealed while the quiz is being taken,
		// whatever ShowResults says; it only affects the review.
		questions[i] = q.ToDTO(false)
	}

	return &Presentation{
		AssignmentID:     assignment.ID,
		QuizID:           assignment.QuizID,
		Name:             assignment.Quiz.Name,
		Description:      assignment.Quiz.Description,
		TimeLimitMinutes: assignment.Settings.TimeLimitMinutes,
		AttemptsAllowed:  assignment.Settings.AttemptsAllowed,
		AttemptsUsed:     used,
		Questions:        questions,
	}, nil
}

type SubmitRequest struct {
	StartedAt time.Time        `json:"started_at"`
	Answers   []grading.Answer `json:"answers"`
}

type SubmitResult struct {
	AttemptID     uint                     `json:"attempt_id"`
	AttemptNumber uint                     `json:"attempt_number"`
	Score         float64                  `json:"score"`
	Passing       bool                     `json:"passing"`
	Results       []grading.QuestionResult `json:"results,omitempty"`
}

// AttemptGradedEvent is what the live results feed carries per submission.
type AttemptGradedEvent struct {
	AttemptID     uint      `json:"attempt_id"`
	AssignmentID  uint      `json:"assignment_id"`
	GroupID       uint      `json:"group_id"`
	QuizID        uint      `json:"quiz_id"`
	StudentID     uint      `json:"student_id"`
	StudentName   string    `json:"student_name"`
	AttemptNumber uint      `json:"attempt_number"`
	Score         float64   `json:"score"`
	Passing       bool      `json:"passing"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func validateAnswers(questions []models.Question, answers []grading.Answer) error {
	optionsByQuestion := make(map[uint]map[uint]bool, len(questions))
	for _, q := range questions {
		opts := make(map[uint]bool, len(q.Options))
		for _, o := range q.Options {
			opts[o.ID] = true
		}
		optionsByQuestion[q.ID] = opts
	}

	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		opts, ok := optionsByQuestion[a.QuestionID]
		if !ok {
			return models.ErrValidation(fmt.Sprintf("question %d does not belong to this quiz", a.QuestionID))
		}
		if seen[a.QuestionID] {
			return models.ErrValidation(fmt.Sprintf("duplicate answer for question %d", a.QuestionID))
		}
		seen[a.QuestionID] = true
		for _, optID := range a.SelectedOptionIDs {
			if !opts[optID] {
				return models.ErrValidation(fmt.Sprintf("option %d does not belong to question %d", optID, a.QuestionID))
			}
		}
	}
	return nil
}

func (s *Service) checkTiming(settings models.QuizSettings, startedAt, now time.Time) error {
	if startedAt.IsZero() {
		return models.ErrValidation("started_at is required")
	}
	if startedAt.After(now) {
		return models.ErrValidation("started_at is in the future")
	}
	if settings.TimeLimitMinutes > 0 {
		limit := time.Duration(settings.TimeLimitMinutes) * time.Minute
		if now.Sub(startedAt) > limit+submitGrace {
			return models.NewError(models.KindClosed, "time limit exceeded")
		}
	}
	return nil
}

// Submit grades and records one attempt. The eligibility check and the insert
// are not atomic; the unique attempt-number index closes that gap, and a
// collision re-runs eligibility against the fresh count.
func (s *Service) Submit(ctx context.Context, assignmentID, studentID uint, req SubmitRequest) (*SubmitResult, error) {
	assignment, err := s.loadForStudent(assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if err := s.checkTiming(assignment.Settings, req.StartedAt, now); err != nil {
		return nil, err
	}
	if err := validateAnswers(assignment.Quiz.Questions, req.Answers); err != nil {
		return nil, err
	}

	prior, err := s.repo.CountAttempts(assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	if err := grading.CanAttempt(assignment.Settings, now, prior); err != nil {
		return nil, err
	}

	score, results, err := grading.Score(assignment.Quiz.Questions, req.Answers)
	if err != nil {
		return nil, err
	}
	passing := grading.Passing(score, assignment.Settings)

	answerRows := make([]models.AttemptAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answerRows[i] = models.AttemptAnswer{
			QuestionID:        a.QuestionID,
			SelectedOptionIDs: datatypes.JSONSlice[uint](a.SelectedOptionIDs),
		}
	}

	attempt := &models.Attempt{
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		AttemptNumber: prior + 1,
		QuizID:        assignment.QuizID,
		StartedAt:     req.StartedAt,
		SubmittedAt:   now,
		Score:         score,
		Passing:       passing,
		Completed:     true,
		Answers:       answerRows,
	}

	for tries := 0; ; tries++ {
		err = s.repo.CreateAttempt(attempt)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateAttempt) || tries >= 1 {
			return nil, models.ErrInternal(err)
		}
		// Lost a race with a concurrent submission: recount and re-check the
		// quota before taking the next slot.
		prior, err = s.repo.CountAttempts(assignmentID, studentID)
		if err != nil {
			return nil, err
		}
		if err := grading.CanAttempt(assignment.Settings, now, prior); err != nil {
			return nil, err
		}
		attempt.ID = 0
		attempt.AttemptNumber = prior + 1
	}

	s.logger.Info("attempt graded",
		zap.Uint("attempt_id", attempt.ID),
		zap.Uint("quiz_id", assignment.QuizID),
		zap.Uint("student_id", studentID),
		zap.Float64("score", score))

	if s.grades != nil {
		if err := s.grades.InvalidateGroupGrades(ctx, assignment.GroupID); err != nil {
			s.logger.Warn("invalidate grade cache", zap.Uint("group_id", assignment.GroupID), zap.Error(err))
		}
	}

	if s.hub != nil {
		event := AttemptGradedEvent{
			AttemptID:     attempt.ID,
			AssignmentID:  assignmentID,
			GroupID:       assignment.GroupID,
			QuizID:        assignment.QuizID,
			StudentID:     studentID,
			AttemptNumber: attempt.AttemptNumber,
			Score:         score,
			Passing:       passing,
			SubmittedAt:   now,
		}
		if student, err := s.repo.GetUserByID(studentID); err == nil {
			event.StudentName = student.Name
		}
		s.hub.BroadcastAttemptGraded(assignment.QuizID, event)
	}

	result := &SubmitResult{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         score,
		Passing:       passing,
	}
	if assignment.Settings.ShowResults {
		result.Results = results
	}
	return result, nil
}

// Review pairs an attempt with the quiz it was taken against. The answer key
// is included for the owning teacher always, and for the student only when
// the assignment reveals results.
type Review struct {
	Attempt *models.Attempt `json:"attempt"`
	Quiz    models.QuizDTO  `json:"quiz"`
}

func (s *Service) GetReview(attemptID, callerID uint) (*Review, error) {
	attempt, err := s.repo.GetAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.repo.GetAssignment(attempt.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Quiz == nil {
		return nil, models.ErrNotFound("quiz not found")
	}

	isStudent := attempt.StudentID == callerID
	isOwner := assignment.Quiz.OwnerID == callerID
	if !isStudent && !isOwner {
		return nil, models.ErrUnauthorized("not allowed to view this attempt")
	}

	reveal := isOwner || assignment.Settings.ShowResults
	return &Review{
		Attempt: attempt,
		Quiz:    assignment.Quiz.ToDTO(reveal),
	}, nil
}

func (s *Service) StudentGrades(studentID uint) ([]models.GradeRow, error) {
	return s.repo.StudentGrades(studentID)
}
