package store

import (
	"context"
	"database/sql"

	"studentdesk/internal/model"
)

// QR codes

func (r *Repository) CreateQRCode(ctx context.Context, qr *model.QRCode) error {
	if qr.ID == "" {
		qr.ID = newID()
	}
	if qr.CreatedAt.IsZero() {
		qr.CreatedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO qr_codes (id, batch_id, valid_date, expires_at, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, qr.ID, qr.BatchID, qr.ValidDate, qr.ExpiresAt.UTC(), qr.Active, qr.CreatedAt)
	return mapInsertErr(err)
}

const qrCols = `id, batch_id, valid_date, expires_at, active, created_at`

func scanQRCode(row scanner) (model.QRCode, error) {
	var qr model.QRCode
	err := row.Scan(&qr.ID, &qr.BatchID, &qr.ValidDate, &qr.ExpiresAt, &qr.Active, &qr.CreatedAt)
	return qr, err
}

func (r *Repository) QRCode(ctx context.Context, id string) (model.QRCode, error) {
	return queryOne(ctx, r.q, scanQRCode, `SELECT `+qrCols+` FROM qr_codes WHERE id = $1`, id)
}

// ActiveQRCodes lists tokens of a batch still flagged active, newest first.
// Expiry is left to the caller.
func (r *Repository) ActiveQRCodes(ctx context.Context, batchID string) ([]model.QRCode, error) {
	return queryList(ctx, r.q, scanQRCode, `
		SELECT `+qrCols+` FROM qr_codes
		WHERE batch_id = $1 AND active = $2
		ORDER BY created_at DESC
	`, batchID, true)
}

func (r *Repository) DeactivateQRCode(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `UPDATE qr_codes SET active = $2 WHERE id = $1`, id, false)
}

// Attendance

// CreateAttendance inserts a record. A second record for the same student and
// day returns ErrDuplicate.
func (r *Repository) CreateAttendance(ctx context.Context, a *model.Attendance) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.MarkedAt.IsZero() {
		a.MarkedAt = now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, batch_id, attendance_date, status, marked_at, qr_code_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.StudentID, nullable(a.BatchID), a.Date, string(a.Status), a.MarkedAt.UTC(), nullable(a.QRCodeID))
	return mapInsertErr(err)
}

func (r *Repository) AttendanceExists(ctx context.Context, studentID, date string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM attendance WHERE student_id = $1 AND attendance_date = $2`, studentID, date)
}

const attendanceSelect = `
	SELECT a.id, a.student_id, a.batch_id, a.attendance_date, a.status, a.marked_at, a.qr_code_id,
	       u.first_name, u.last_name, b.name
	FROM attendance a
	JOIN students s ON s.id = a.student_id
	JOIN users u ON u.id = s.user_id
	LEFT JOIN batches b ON b.id = a.batch_id`

func scanAttendance(row scanner) (model.Attendance, error) {
	var a model.Attendance
	var status, first, last string
	var batch, qr, batchName sql.NullString
	err := row.Scan(&a.ID, &a.StudentID, &batch, &a.Date, &status, &a.MarkedAt, &qr, &first, &last, &batchName)
	a.Status = model.AttendanceStatus(status)
	a.BatchID, a.QRCodeID, a.BatchName = batch.String, qr.String, batchName.String
	a.StudentName = model.User{FirstName: first, LastName: last}.FullName()
	return a, err
}

func (r *Repository) Attendance(ctx context.Context, id string) (model.Attendance, error) {
	return queryOne(ctx, r.q, scanAttendance, attendanceSelect+` WHERE a.id = $1`, id)
}

// AttendanceFilter narrows ListAttendance. Empty fields are ignored; From and
// To are inclusive calendar days.
type AttendanceFilter struct {
	StudentID string
	BatchID   string
	Date      string
	From      string
	To        string
}

// ListAttendance returns records matching f ordered by day then student.
func (r *Repository) ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.Attendance, error) {
	var w where
	if f.StudentID != "" {
		w.add("a.student_id = ?", f.StudentID)
	}
	if f.BatchID != "" {
		w.add("a.batch_id = ?", f.BatchID)
	}
	if f.Date != "" {
		w.add("a.attendance_date = ?", f.Date)
	}
	if f.From != "" {
		w.add("a.attendance_date >= ?", f.From)
	}
	if f.To != "" {
		w.add("a.attendance_date <= ?", f.To)
	}
	query := attendanceSelect + w.String() + ` ORDER BY a.attendance_date DESC, u.last_name, u.first_name`
	return queryList(ctx, r.q, scanAttendance, query, w.args...)
}

func (r *Repository) UpdateAttendanceStatus(ctx context.Context, id string, status model.AttendanceStatus) error {
	return r.execAffecting(ctx, `UPDATE attendance SET status = $2 WHERE id = $1`, id, string(status))
}

func (r *Repository) DeleteAttendance(ctx context.Context, id string) error {
	return r.execAffecting(ctx, `DELETE FROM attendance WHERE id = $1`, id)
}
