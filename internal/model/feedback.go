package model

import "time"

// FeedbackType classifies what a feedback entry is about.
type FeedbackType string

const (
	FeedbackCourse  FeedbackType = "COURSE_FEEDBACK"
	FeedbackTrainer FeedbackType = "TRAINER_FEEDBACK"
	FeedbackSystem  FeedbackType = "SYSTEM_FEEDBACK"
	FeedbackGeneral FeedbackType = "GENERAL_FEEDBACK"
)

// FeedbackTypes lists every known type in display order.
var FeedbackTypes = []FeedbackType{FeedbackCourse, FeedbackTrainer, FeedbackSystem, FeedbackGeneral}

func (t FeedbackType) Valid() bool {
	for _, known := range FeedbackTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Feedback is a rated comment submitted by a student.
type Feedback struct {
	ID          string       `json:"id"`
	StudentID   string       `json:"student_id"`
	TrainerID   string       `json:"trainer_id,omitempty"`
	CourseID    string       `json:"course_id,omitempty"`
	Type        FeedbackType `json:"feedback_type"`
	Rating      int          `json:"rating"`
	Comments    string       `json:"comments"`
	Anonymous   bool         `json:"anonymous"`
	SubmittedAt time.Time    `json:"submitted_at"`

	StudentName string `json:"-"`
	TrainerName string `json:"-"`
	CourseName  string `json:"-"`
}

// FeedbackView is the external representation of feedback. The submitting
// student is omitted whenever the entry is anonymous, for every audience.
type FeedbackView struct {
	ID          string       `json:"id"`
	StudentID   string       `json:"student_id,omitempty"`
	StudentName string       `json:"student_name,omitempty"`
	TrainerName string       `json:"trainer_name,omitempty"`
	CourseName  string       `json:"course_name,omitempty"`
	Type        FeedbackType `json:"feedback_type"`
	Rating      int          `json:"rating"`
	Comments    string       `json:"comments"`
	Anonymous   bool         `json:"anonymous"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

func (f Feedback) View() FeedbackView {
	v := FeedbackView{
		ID:          f.ID,
		TrainerName: f.TrainerName,
		CourseName:  f.CourseName,
		Type:        f.Type,
		Rating:      f.Rating,
		Comments:    f.Comments,
		Anonymous:   f.Anonymous,
		SubmittedAt: f.SubmittedAt,
	}
	if !f.Anonymous {
		v.StudentID = f.StudentID
		v.StudentName = f.StudentName
	}
	return v
}
