package grading

import (
	"math/rand"

	"classquiz/internal/models"
)

// Present returns a copy of questions reordered for one attempt. Questions and
// each question's options are shuffled independently per the settings flags,
// every permutation equally likely. The input is never mutated; correctness
// stripping is the DTO layer's job.
func Present(questions []models.Question, settings models.QuizSettings) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		out[i] = q
		out[i].Options = append([]models.Option(nil), q.Options...)
	}
	if settings.ShuffleQuestions {
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}
	if settings.ShuffleOptions {
		for i := range out {
			opts := out[i].Options
			rand.Shuffle(len(opts), func(a, b int) {
				opts[a], opts[b] = opts[b], opts[a]
			})
		}
	}
	return out
}
