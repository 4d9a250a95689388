package models

// OptionDTO is the outbound shape of an option. IsCorrect stays nil unless the
// caller explicitly reveals answers; suppression happens here, not in the UI.
type OptionDTO struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type QuestionDTO struct {
	ID      uint         `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []OptionDTO  `json:"options"`
}

type QuizDTO struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      QuizStatus    `json:"status"`
	Questions   []QuestionDTO `json:"questions"`
}

func (q Question) ToDTO(revealAnswers bool) QuestionDTO {
	optionDTOs := make([]OptionDTO, len(q.Options))
	for i, opt := range q.Options {
		optionDTOs[i] = OptionDTO{
			ID:   opt.ID,
			Text: opt.Text,
		}
		if revealAnswers {
			correct := opt.IsCorrect
			optionDTOs[i].IsCorrect = &correct
		}
	}
	return QuestionDTO{
		ID:      q.ID,
		Text:    q.Text,
		Type:    q.Type,
		Options: optionDTOs,
	}
}

func (q Quiz) ToDTO(revealAnswers bool) QuizDTO {
	questionDTOs := make([]QuestionDTO, len(q.Questions))
	for i, question := range q.Questions {
		questionDTOs[i] = question.ToDTO(revealAnswers)
	}
	return QuizDTO{
		ID:          q.ID,
		Name:        q.Name,
		Description: q.Description,
		Status:      q.Status,
		Questions:   questionDTOs,
	}
}
