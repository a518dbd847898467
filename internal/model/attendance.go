package model

import "time"

// DateLayout is the storage and wire format of calendar days.
const DateLayout = "2006-01-02"

// AttendanceStatus is the recorded presence of a student on a day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusLate    AttendanceStatus = "LATE"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// QRCode is a short-lived token scanned to mark attendance for a batch.
type QRCode struct {
	ID        string    `json:"qr_code_id"`
	BatchID   string    `json:"batch_id"`
	ValidDate string    `json:"valid_date"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token can no longer be used at now.
func (q QRCode) Expired(now time.Time) bool {
	return !q.Active || q.ExpiresAt.Before(now)
}

// Attendance is one record per student per day.
type Attendance struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	BatchID   string           `json:"batch_id,omitempty"`
	Date      string           `json:"attendance_date"`
	Status    AttendanceStatus `json:"status"`
	MarkedAt  time.Time        `json:"marked_at"`
	QRCodeID  string           `json:"qr_code_id,omitempty"`

	StudentName string `json:"-"`
	BatchName   string `json:"-"`
}

// AttendanceView is the external representation of an attendance record.
type AttendanceView struct {
	ID          string           `json:"id"`
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	BatchName   string           `json:"batch_name,omitempty"`
	Date        string           `json:"attendance_date"`
	Status      AttendanceStatus `json:"status"`
	MarkedAt    time.Time        `json:"marked_at"`
}

func (a Attendance) View() AttendanceView {
	return AttendanceView{
		ID:          a.ID,
		StudentID:   a.StudentID,
		StudentName: a.StudentName,
		BatchName:   a.BatchName,
		Date:        a.Date,
		Status:      a.Status,
		MarkedAt:    a.MarkedAt,
	}
}
