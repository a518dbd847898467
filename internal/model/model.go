package model

import "time"

// Role is the authorization role carried by a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTrainer Role = "TRAINER"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleStudent:
		return true
	}
	return false
}

// CourseType is the enrollment track a student belongs to.
type CourseType string

const (
	CourseFullStack   CourseType = "FULL_STACK"
	CourseDataScience CourseType = "DATA_SCIENCE"
	CourseDevOps      CourseType = "DEVOPS"
	CourseMobile      CourseType = "MOBILE"
	CourseOther       CourseType = "OTHER"
)

func (c CourseType) Valid() bool {
	switch c {
	case CourseFullStack, CourseDataScience, CourseDevOps, CourseMobile, CourseOther:
		return true
	}
	return false
}

// User is a login identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Student represents an enrolled student. Name fields are joined from users.
type Student struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	StudentCode    string     `json:"student_code"`
	EnrolledCourse CourseType `json:"enrolled_course"`
	BatchID        string     `json:"batch_id,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	PhotoURL       string     `json:"photo_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (s Student) Name() string {
	return User{FirstName: s.FirstName, LastName: s.LastName}.FullName()
}

// Trainer represents a trainer profile. Name fields are joined from users.
type Trainer struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Specialization string    `json:"specialization,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (t Trainer) Name() string {
	return User{FirstName: t.FirstName, LastName: t.LastName}.FullName()
}

// Course is a training programme.
type Course struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CourseType  CourseType `json:"course_type"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Batch is a cohort of students sharing a schedule and trainer.
type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CourseID  string    `json:"course_id,omitempty"`
	TrainerID string    `json:"trainer_id,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
