package grading

import (
	"classquiz/internal/models"
)

// Answer is one question's submitted selection. An unanswered question simply
// has no Answer, which grades as the empty set.
type Answer struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
}

type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Correct    bool `json:"correct"`
}

// Score grades a submission against the quiz's authoritative answer key.
// A question counts as correct iff the selected set exactly equals the set of
// correct option ids: no partial credit for subsets or supersets. The returned
// percentage is 100 * correct / total.
//
// Empty quizzes are rejected at authoring time and never reach this function;
// if one does, that is drifted data and surfaces as an internal failure.
func Score(questions []models.Question, answers []Answer) (float64, []QuestionResult, error) {
	if len(questions) == 0 {
		return 0, nil, models.NewError(models.KindInternal, "cannot score a quiz with no questions")
	}

	selected := make(map[uint][]uint, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOptionIDs
	}

	results := make([]QuestionResult, 0, len(questions))
	correctCount := 0
	for _, q := range questions {
		correct := sameSet(q.CorrectOptionIDs(), selected[q.ID])
		if correct {
			correctCount++
		}
		results = append(results, QuestionResult{QuestionID: q.ID, Correct: correct})
	}

	percentage := 100 * float64(correctCount) / float64(len(questions))
	return percentage, results, nil
}

// Passing is derived, never stored authority: score beats the threshold, or
// there is no threshold.
func Passing(score float64, settings models.QuizSettings) bool {
	if settings.PassingScore == nil {
		return true
	}
	return score >= *settings.PassingScore
}

func sameSet(a, b []uint) bool {
	as := make(map[uint]struct{}, len(a))
	for _, id := range a {
		as[id] = struct{}{}
	}
	bs := make(map[uint]struct{}, len(b))
	for _, id := range b {
		bs[id] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}
