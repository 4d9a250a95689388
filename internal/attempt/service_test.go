package attempt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classquiz/internal/attempt"
	"classquiz/internal/grading"
	"classquiz/internal/models"
	"classquiz/internal/testdb"
)

type recordingHub struct {
	events []attempt.AttemptGradedEvent
}

func (h *recordingHub) BroadcastAttemptGraded(quizID uint, data interface{}) {
	if event, ok := data.(attempt.AttemptGradedEvent); ok {
		h.events = append(h.events, event)
	}
}

type noopInvalidator struct {
	invalidated []uint
}

func (n *noopInvalidator) InvalidateGroupGrades(_ context.Context, groupID uint) error {
	n.invalidated = append(n.invalidated, groupID)
	return nil
}

// fixture wires a teacher, an enrolled student, an active two-question quiz
// and an assignment carrying the given settings.
type fixture struct {
	db         *gorm.DB
	hub        *recordingHub
	grades     *noopInvalidator
	teacher    models.User
	student    models.User
	quiz       models.Quiz
	group      models.Group
	assignment models.Assignment
}

func newFixture(t *testing.T, settings models.QuizSettings) *fixture {
	t.Helper()
	f := &fixture{
		db:     testdb.New(t),
		hub:    &recordingHub{},
		grades: &noopInvalidator{},
	}

	f.teacher = models.User{Name: "Ms. Lopez", Email: "lopez@example.com", Password: "x", Role: models.RoleTeacher}
	f.student = models.User{Name: "Sam", Email: "sam@example.com", Password: "x", Role: models.RoleStudent}
	if err := f.db.Create(&f.teacher).Error; err != nil {
		t.Fatalf("seed teacher: %v", err)
	}
	if err := f.db.Create(&f.student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}

	f.quiz = models.Quiz{
		Name:    "Fractions",
		OwnerID: f.teacher.ID,
		Status:  models.StatusActive,
		Questions: []models.Question{
			{
				Text:     "1/2 + 1/2 = ?",
				Position: 1,
				Type:     models.QuestionSingle,
				Options: []models.Option{
					{Text: "1", IsCorrect: true},
					{Text: "2"},
				},
			},
			{
				Text:     "Which equal 1/2?",
				Position: 2,
				Type:     models.QuestionMultiple,
				Options: []models.Option{
					{Text: "2/4", IsCorrect: true},
					{Text: "3/6", IsCorrect: true},
					{Text: "2/3"},
				},
			},
		},
	}
	if err := f.db.Create(&f.quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	f.group = models.Group{Name: "Period 3", OwnerID: f.teacher.ID, InviteCode: "ABCD1234"}
	if err := f.db.Create(&f.group).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	if err := f.db.Model(&f.group).Association("Members").Append(&f.student); err != nil {
		t.Fatalf("enroll student: %v", err)
	}

	f.assignment = models.Assignment{GroupID: f.group.ID, QuizID: f.quiz.ID, Settings: settings}
	if err := f.db.Create(&f.assignment).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return f
}

func (f *fixture) service() *attempt.Service {
	return attempt.NewService(attempt.NewRepository(f.db), f.hub, f.grades, zap.NewNop())
}

func (f *fixture) serviceAt(now time.Time) *attempt.Service {
	return attempt.NewServiceWithClock(attempt.NewRepository(f.db), f.hub, f.grades, zap.NewNop(),
		func() time.Time { return now })
}

// Answers that would score 100 against the fixture quiz.
func (f *fixture) perfectAnswers() []grading.Answer {
	q1, q2 := f.quiz.Questions[0], f.quiz.Questions[1]
	return []grading.Answer{
		{QuestionID: q1.ID, SelectedOptionIDs: []uint{q1.Options[0].ID}},
		{QuestionID: q2.ID, SelectedOptionIDs: []uint{q2.Options[0].ID, q2.Options[1].ID}},
	}
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t, models.QuizSettings{AttemptsAllowed: 3})
	service := f.service()

	// A second, still-draft quiz must stay invisible.
	draft := models.Quiz{
		Name:    "Unfinished",
		OwnerID: f.teacher.ID,
		Status:  models.StatusDraft,
		Questions: []models.Question{
			{Text: "?", Type: models.QuestionSingle, Options: []models.Option{
				{Text: "a", IsCorrect: true},
				{Text: "b"},
			}},
		},
	}
	if err := f.db.Create(&draft).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	if err := f.db.Create(&models.Assignment{GroupID: f.group.ID, QuizID: draft.ID}).Error; err != nil {
		t.Fatalf("assign draft: %v", err)
	}

	quizzes, err := service.ListAvailable(f.student.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("expected 1 available quiz, got %d", len(quizzes))
	}
	got := quizzes[0]
	if got.AssignmentID != f.assignment.ID || got.Name != "Fractions" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Availability != "open" || !got.CanAttempt || got.AttemptsUsed != 0 {
		t.Fatalf("expected open and attemptable, got %+v", got)
	}

	// Used attempts show up in the listing.
	if _, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	quizzes, err = service.ListAvailable(f.student.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if quizzes[0].AttemptsUsed != 1 || !quizzes[0].CanAttempt {
		t.Fatalf("expected 1 used attempt with quota remaining, got %+v", quizzes[0])
	}

	// Outsiders see nothing.
	outsider := models.User{Name: "Pat", Email: "pat@example.com", Password: "x", Role: models.RoleStudent}
	if err := f.db.Create(&outsider).Error; err != nil {
		t.Fatalf("seed outsider: %v", err)
	}
	quizzes, err = service.ListAvailable(outsider.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("outsider should see no quizzes, got %d", len(quizzes))
	}
}

func TestGetPresentationStripsAnswerKey(t *testing.T) {
	f := newFixture(t, models.QuizSettings{ShowResults: true})
	service := f.service()

	presentation, err := service.GetPresentation(f.assignment.ID, f.student.ID)
	if err != nil {
		t.Fatalf("presentation failed: %v", err)
	}
	if len(presentation.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(presentation.Questions))
	}
	// ShowResults governs the post-submission review, never the live quiz.
	for _, q := range presentation.Questions {
		for _, o := range q.Options {
			if o.IsCorrect != nil {
				t.Fatalf("answer key leaked for option %d", o.ID)
			}
		}
	}
}

func TestGetPresentationHiddenFromOutsiders(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})
	outsider := models.User{Name: "Pat", Email: "pat@example.com", Password: "x", Role: models.RoleStudent}
	if err := f.db.Create(&outsider).Error; err != nil {
		t.Fatalf("seed outsider: %v", err)
	}

	_, err := f.service().GetPresentation(f.assignment.ID, outsider.ID)
	if !models.IsKind(err, models.KindNotFound) {
		t.Fatalf("expected not found for outsider, got %v", err)
	}
}

func TestSubmitGradesAndBroadcasts(t *testing.T) {
	f := newFixture(t, models.QuizSettings{ShowResults: true})
	service := f.service()

	answers := f.perfectAnswers()
	// Miss the second question: select only one of the two correct options.
	answers[1].SelectedOptionIDs = answers[1].SelectedOptionIDs[:1]

	result, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   answers,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Score != 50 {
		t.Fatalf("expected score 50, got %v", result.Score)
	}
	if result.AttemptNumber != 1 {
		t.Fatalf("expected attempt number 1, got %d", result.AttemptNumber)
	}
	if len(result.Results) != 2 {
		t.Fatalf("ShowResults is on, expected per-question results, got %+v", result.Results)
	}

	var stored models.Attempt
	if err := f.db.Preload("Answers").First(&stored, result.AttemptID).Error; err != nil {
		t.Fatalf("load stored attempt: %v", err)
	}
	if stored.Score != 50 || !stored.Completed || len(stored.Answers) != 2 {
		t.Fatalf("attempt not persisted correctly: %+v", stored)
	}

	if len(f.hub.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(f.hub.events))
	}
	event := f.hub.events[0]
	if event.QuizID != f.quiz.ID || event.StudentName != "Sam" || event.Score != 50 {
		t.Fatalf("unexpected broadcast: %+v", event)
	}
	if len(f.grades.invalidated) != 1 || f.grades.invalidated[0] != f.group.ID {
		t.Fatalf("grade cache not invalidated for group: %+v", f.grades.invalidated)
	}
}

func TestSubmitHidesResultsWhenDisabled(t *testing.T) {
	f := newFixture(t, models.QuizSettings{ShowResults: false})

	result, err := f.service().Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Score != 100 || result.Results != nil {
		t.Fatalf("expected bare score with no breakdown, got %+v", result)
	}
}

func TestSubmitEnforcesAttemptQuota(t *testing.T) {
	f := newFixture(t, models.QuizSettings{AttemptsAllowed: 1})
	service := f.service()

	req := attempt.SubmitRequest{StartedAt: time.Now().Add(-time.Minute), Answers: f.perfectAnswers()}
	if _, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, req)
	if !models.IsKind(err, models.KindAttemptsExhausted) {
		t.Fatalf("expected attempts exhausted, got %v", err)
	}
}

func TestSubmitOutsideWindow(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Hour)
	f := newFixture(t, models.QuizSettings{EndAt: &end})
	service := f.serviceAt(now)

	_, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: now.Add(-2 * time.Hour),
		Answers:   f.perfectAnswers(),
	})
	if !models.IsKind(err, models.KindClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestSubmitAfterTimeLimit(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, models.QuizSettings{TimeLimitMinutes: 10})
	service := f.serviceAt(now)

	// 11 minutes in: past the limit plus the grace window.
	_, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: now.Add(-11 * time.Minute),
		Answers:   f.perfectAnswers(),
	})
	if !models.IsKind(err, models.KindClosed) {
		t.Fatalf("expected closed for blown time limit, got %v", err)
	}

	// 10m20s in: inside the grace window, accepted.
	if _, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: now.Add(-10*time.Minute - 20*time.Second),
		Answers:   f.perfectAnswers(),
	}); err != nil {
		t.Fatalf("submit within grace failed: %v", err)
	}
}

func TestSubmitRejectsForeignOptions(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})
	service := f.service()

	answers := f.perfectAnswers()
	answers[0].SelectedOptionIDs = []uint{999999}
	_, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   answers,
	})
	if !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error for foreign option, got %v", err)
	}

	answers = f.perfectAnswers()
	answers = append(answers, answers[0])
	_, err = service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   answers,
	})
	if !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error for duplicate answer, got %v", err)
	}
}

func TestSubmitRequiresStartedAt(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})

	_, err := f.service().Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		Answers: f.perfectAnswers(),
	})
	if !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error for missing started_at, got %v", err)
	}
}

func TestAttemptSequenceIsUnique(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})
	repo := attempt.NewRepository(f.db)

	first := &models.Attempt{
		AssignmentID:  f.assignment.ID,
		StudentID:     f.student.ID,
		AttemptNumber: 1,
		QuizID:        f.quiz.ID,
		StartedAt:     time.Now(),
		SubmittedAt:   time.Now(),
		Completed:     true,
	}
	if err := repo.CreateAttempt(first); err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}

	// Two submissions racing past the eligibility check compute the same
	// sequence number; the unique index must refuse the second insert.
	duplicate := &models.Attempt{
		AssignmentID:  f.assignment.ID,
		StudentID:     f.student.ID,
		AttemptNumber: 1,
		QuizID:        f.quiz.ID,
		StartedAt:     time.Now(),
		SubmittedAt:   time.Now(),
		Completed:     true,
	}
	if err := repo.CreateAttempt(duplicate); !errors.Is(err, attempt.ErrDuplicateAttempt) {
		t.Fatalf("expected duplicate-attempt error, got %v", err)
	}
}

func TestSubmitSequenceCollisionNeverOverwrites(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})
	service := f.service()

	// A single stored attempt holding sequence number 2 makes the count-based
	// number (count+1 = 2) collide on both the first try and the bounded
	// retry, the same shape a lost race leaves behind.
	occupied := models.Attempt{
		AssignmentID:  f.assignment.ID,
		StudentID:     f.student.ID,
		AttemptNumber: 2,
		QuizID:        f.quiz.ID,
		StartedAt:     time.Now(),
		SubmittedAt:   time.Now(),
		Score:         100,
		Completed:     true,
	}
	if err := f.db.Create(&occupied).Error; err != nil {
		t.Fatalf("seed occupied sequence: %v", err)
	}

	_, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	})
	if !models.IsKind(err, models.KindInternal) {
		t.Fatalf("expected internal failure after exhausted retry, got %v", err)
	}

	// The stored attempt is untouched and no sibling row appeared.
	var count int64
	if err := f.db.Model(&models.Attempt{}).
		Where("assignment_id = ? AND student_id = ?", f.assignment.ID, f.student.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", count)
	}
	var stored models.Attempt
	if err := f.db.First(&stored, occupied.ID).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if stored.Score != 100 {
		t.Fatalf("stored attempt was overwritten: %+v", stored)
	}
}

func TestReviewAccess(t *testing.T) {
	f := newFixture(t, models.QuizSettings{ShowResults: false})
	service := f.service()

	result, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	hasKey := func(review *attempt.Review) bool {
		for _, q := range review.Quiz.Questions {
			for _, o := range q.Options {
				if o.IsCorrect != nil {
					return true
				}
			}
		}
		return false
	}

	// The student sees their attempt but not the key while results are hidden.
	review, err := service.GetReview(result.AttemptID, f.student.ID)
	if err != nil {
		t.Fatalf("student review failed: %v", err)
	}
	if review.Attempt.ID != result.AttemptID {
		t.Fatalf("wrong attempt in review: %d", review.Attempt.ID)
	}
	if hasKey(review) {
		t.Fatal("answer key leaked to student with results hidden")
	}

	// The owning teacher always gets the key.
	review, err = service.GetReview(result.AttemptID, f.teacher.ID)
	if err != nil {
		t.Fatalf("teacher review failed: %v", err)
	}
	if !hasKey(review) {
		t.Fatal("teacher review is missing the answer key")
	}

	// Strangers get nothing.
	outsider := models.User{Name: "Pat", Email: "pat@example.com", Password: "x", Role: models.RoleStudent}
	if err := f.db.Create(&outsider).Error; err != nil {
		t.Fatalf("seed outsider: %v", err)
	}
	if _, err := service.GetReview(result.AttemptID, outsider.ID); !models.IsKind(err, models.KindUnauthorized) {
		t.Fatalf("expected unauthorized for outsider, got %v", err)
	}
}

func TestReviewRevealsKeyWhenResultsShown(t *testing.T) {
	f := newFixture(t, models.QuizSettings{ShowResults: true})
	service := f.service()

	result, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	review, err := service.GetReview(result.AttemptID, f.student.ID)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	found := false
	for _, q := range review.Quiz.Questions {
		for _, o := range q.Options {
			if o.IsCorrect != nil {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected answer key in review with results shown")
	}
}

func TestStudentGrades(t *testing.T) {
	f := newFixture(t, models.QuizSettings{})
	service := f.service()

	if _, err := service.Submit(context.Background(), f.assignment.ID, f.student.ID, attempt.SubmitRequest{
		StartedAt: time.Now().Add(-time.Minute),
		Answers:   f.perfectAnswers(),
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	grades, err := service.StudentGrades(f.student.ID)
	if err != nil {
		t.Fatalf("grades failed: %v", err)
	}
	if len(grades) != 1 {
		t.Fatalf("expected 1 grade row, got %d", len(grades))
	}
	if grades[0].QuizName != "Fractions" || grades[0].Score != 100 {
		t.Fatalf("unexpected grade row: %+v", grades[0])
	}
}
