package app

import "aspirant-quiz-service/internal/domain"

// OptionStatus is how an option is presented.
type OptionStatus string

const (
	OptionIdle      OptionStatus = "idle"
	OptionSelected  OptionStatus = "selected"
	OptionCorrect   OptionStatus = "correct"
	OptionIncorrect OptionStatus = "incorrect"
	OptionDimmed    OptionStatus = "dimmed"
)

// OptionView is one rendered option.
type OptionView struct {
	Index  int          `json:"index"`
	Text   string       `json:"text"`
	Status OptionStatus `json:"status"`
	Locked bool         `json:"locked"`
}

// QuestionView is the rendered current question.
type QuestionView struct {
	Number         int          `json:"number"`
	Total          int          `json:"total"`
	Progress       int          `json:"progress"`
	Score          int          `json:"score"`
	Prompt         string       `json:"prompt"`
	Options        []OptionView `json:"options"`
	Explanation    string       `json:"explanation,omitempty"`
	Answered       bool         `json:"answered"`
	CanSubmit      bool         `json:"canSubmit"`
	CanAdvance     bool         `json:"canAdvance"`
	CanViewResults bool         `json:"canViewResults"`
	IsLast         bool         `json:"isLast"`
}

// RenderQuestion is a pure function of the question and the session state.
func RenderQuestion(q domain.Question, state domain.SessionState, total int) QuestionView {
	isLast := state.CurrentQuestionIndex == total-1
	view := QuestionView{
		Number:   state.CurrentQuestionIndex + 1,
		Total:    total,
		Score:    state.Score,
		Prompt:   q.Prompt,
		Options:  make([]OptionView, 0, len(q.Options)),
		Answered: state.Answered,
		IsLast:   isLast,
	}
	if total > 0 {
		view.Progress = state.CurrentQuestionIndex * 100 / total
	}

	for i, text := range q.Options {
		view.Options = append(view.Options, OptionView{
			Index:  i,
			Text:   text,
			Status: optionStatus(i, q, state),
			Locked: state.Answered,
		})
	}

	if state.Answered {
		view.Explanation = q.Explanation
		view.CanAdvance = !isLast
		view.CanViewResults = isLast
	} else {
		view.CanSubmit = state.SelectedAnswer != nil
	}
	return view
}

func optionStatus(index int, q domain.Question, state domain.SessionState) OptionStatus {
	selected := state.SelectedAnswer != nil && *state.SelectedAnswer == index
	if !state.Answered {
		if selected {
			return OptionSelected
		}
		return OptionIdle
	}
	switch {
	case index == q.CorrectAnswerIndex:
		return OptionCorrect
	case selected:
		return OptionIncorrect
	default:
		return OptionDimmed
	}
}
