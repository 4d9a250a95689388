package quiz_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"classquiz/internal/models"
	"classquiz/internal/quiz"
	"classquiz/internal/testdb"
)

// missCache always misses so tests exercise the repository path.
type missCache struct{}

func (missCache) GetQuiz(context.Context, uint) (*models.Quiz, error) {
	return nil, models.ErrNotFound("cache miss")
}
func (missCache) SetQuiz(context.Context, *models.Quiz) error { return nil }
func (missCache) InvalidateQuiz(context.Context, uint) error  { return nil }

func newTestService(t *testing.T) *quiz.Service {
	t.Helper()
	db := testdb.New(t)
	return quiz.NewService(quiz.NewRepository(db), missCache{}, zap.NewNop())
}

func validInput() quiz.QuizInput {
	return quiz.QuizInput{
		Name: "Fractions",
		Questions: []quiz.QuestionInput{
			{
				Text: "1/2 + 1/4 = ?",
				Type: models.QuestionSingle,
				Options: []quiz.OptionInput{
					{Text: "3/4", IsCorrect: true},
					{Text: "2/6"},
					{Text: "1/8"},
				},
			},
			{
				Text: "Which equal 1/2?",
				Type: models.QuestionMultiple,
				Options: []quiz.OptionInput{
					{Text: "2/4", IsCorrect: true},
					{Text: "3/6", IsCorrect: true},
					{Text: "2/3"},
				},
			},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	created, err := service.Create(ctx, 1, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != models.StatusDraft {
		t.Fatalf("new quiz should be draft, got %s", created.Status)
	}

	got, err := service.Get(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got.Questions))
	}
	if len(got.Questions[0].CorrectOptionIDs()) != 1 {
		t.Fatal("answer key not persisted")
	}

	if _, err := service.Get(ctx, 2, created.ID); !models.IsKind(err, models.KindUnauthorized) {
		t.Fatalf("expected unauthorized for non-owner, got %v", err)
	}
}

func TestCreateRequiresCorrectOption(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	input := validInput()
	input.Questions[0].Options[0].IsCorrect = false
	if _, err := service.Create(ctx, 1, input); !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error for no correct option, got %v", err)
	}
}

func TestCreateSingleAnswerNeedsExactlyOneCorrect(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	input := validInput()
	input.Questions[0].Options[1].IsCorrect = true
	if _, err := service.Create(ctx, 1, input); !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error for two corrects on single, got %v", err)
	}
}

func TestUpdateOnlyDrafts(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	created, err := service.Create(ctx, 1, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	input := validInput()
	input.Name = "Fractions v2"
	updated, err := service.Update(ctx, 1, created.ID, input)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Fractions v2" || len(updated.Questions) != 2 {
		t.Fatalf("unexpected updated quiz: %+v", updated)
	}

	if _, err := service.AdvanceStatus(ctx, 1, created.ID, models.StatusActive); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := service.Update(ctx, 1, created.ID, input); !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error editing active quiz, got %v", err)
	}
}

func TestStatusLifecycleIsForwardOnly(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	created, err := service.Create(ctx, 1, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := service.AdvanceStatus(ctx, 1, created.ID, models.StatusScheduled); err != nil {
		t.Fatalf("draft->scheduled failed: %v", err)
	}
	if _, err := service.AdvanceStatus(ctx, 1, created.ID, models.StatusClosed); err != nil {
		t.Fatalf("scheduled->closed failed: %v", err)
	}
	if _, err := service.AdvanceStatus(ctx, 1, created.ID, models.StatusActive); !models.IsKind(err, models.KindValidation) {
		t.Fatalf("expected validation error going backwards, got %v", err)
	}
	if _, err := service.AdvanceStatus(ctx, 2, created.ID, models.StatusClosed); !models.IsKind(err, models.KindUnauthorized) {
		t.Fatalf("expected unauthorized for non-owner, got %v", err)
	}
}

func TestVerifyOwnership(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	created, err := service.Create(ctx, 1, validInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := service.VerifyOwnership(ctx, 1, created.ID); err != nil {
		t.Fatalf("owner verification failed: %v", err)
	}
	if err := service.VerifyOwnership(ctx, 2, created.ID); !models.IsKind(err, models.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
