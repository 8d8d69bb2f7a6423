package quiz

import "time"

// View is the caller-facing shape of a quiz. Correct indices and
// explanations stay hidden for unanswered questions until completion.
type View struct {
	ID             string         `json:"id"`
	EventID        string         `json:"event_id"`
	EventTitle     string         `json:"event_title"`
	Description    string         `json:"description,omitempty"`
	GoalEventID    string         `json:"goal_event_id,omitempty"`
	SeriesID       string         `json:"series_id,omitempty"`
	Status         Status         `json:"status"`
	Score          *int           `json:"score,omitempty"`
	TotalQuestions int            `json:"total_questions"`
	AnsweredCount  int            `json:"answered_count"`
	Questions      []QuestionView `json:"questions"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// QuestionView is one question as shown to its owner.
type QuestionView struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	AnsweredIndex *int     `json:"answered_index,omitempty"`
	Correct       *bool    `json:"correct,omitempty"`
	CorrectIndex  *int     `json:"correct_index,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// NewView renders q for its owner.
func NewView(q *Quiz) View {
	v := View{
		ID:             q.ID,
		EventID:        q.EventID,
		EventTitle:     q.EventTitle,
		Description:    q.Description,
		GoalEventID:    q.GoalEventID,
		SeriesID:       q.SeriesID,
		Status:         q.Status,
		TotalQuestions: len(q.Questions),
		AnsweredCount:  len(q.Answers),
		Questions:      make([]QuestionView, 0, len(q.Questions)),
		CreatedAt:      q.CreatedAt,
		CompletedAt:    q.CompletedAt,
	}
	if q.IsCompleted() {
		score := q.Score
		v.Score = &score
	}

	for _, question := range q.Questions {
		qv := QuestionView{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Choices: question.Choices,
		}
		idx, answered := q.Answers[question.ID]
		if answered {
			chosen := idx
			correct := question.IsCorrect(idx)
			qv.AnsweredIndex = &chosen
			qv.Correct = &correct
		}
		if answered || q.IsCompleted() {
			ci := question.CorrectIndex
			qv.CorrectIndex = &ci
			qv.Explanation = question.Explanation
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}
