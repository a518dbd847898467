package model

import "time"

// Quiz is a timed question set authored by a trainer.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TrainerID   string     `json:"trainer_id"`
	CourseType  CourseType `json:"course_type,omitempty"`
	BatchID     string     `json:"batch_id,omitempty"`
	TimeLimit   int        `json:"time_limit"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`

	TrainerName string `json:"-"`
	BatchName   string `json:"-"`
}

// Available reports whether the quiz is active and now falls in [StartTime, EndTime).
func (q Quiz) Available(now time.Time) bool {
	return q.Active && !now.Before(q.StartTime) && now.Before(q.EndTime)
}

// Question belongs to exactly one quiz. CorrectAnswer is one of A, B, C, D.
type Question struct {
	ID            string `json:"id"`
	QuizID        string `json:"quiz_id"`
	Position      int    `json:"position"`
	Text          string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	Marks         int    `json:"marks"`
}

// QuestionView is the student-safe projection of a question: no correct answer.
type QuestionView struct {
	ID      string `json:"id"`
	Text    string `json:"question_text"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
	Marks   int    `json:"marks"`
}

func (q Question) View() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
		Marks:   q.Marks,
	}
}

// QuizView is the external representation of a quiz with its questions.
type QuizView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	TrainerName string         `json:"trainer_name,omitempty"`
	CourseType  CourseType     `json:"course_type,omitempty"`
	BatchName   string         `json:"batch_name,omitempty"`
	TimeLimit   int            `json:"time_limit"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Active      bool           `json:"active"`
	Questions   []QuestionView `json:"questions"`
}

// Attempt is a student's single graded submission for a quiz.
type Attempt struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	QuizID         string    `json:"quiz_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	Score          int       `json:"score"`
	Answers        string    `json:"answers"`
	Completed      bool      `json:"completed"`

	StudentName string `json:"-"`
}

// QuizResult is one row of a quiz's result sheet.
type QuizResult struct {
	StudentName    string    `json:"student_name"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}
