package attendance

import (
	"context"
	"errors"
	"sort"
	"time"

	"studentdesk/internal/apperr"
	"studentdesk/internal/metrics"
	"studentdesk/internal/model"
	"studentdesk/internal/queue"
	"studentdesk/internal/store"
)

// Broadcaster receives every successfully created record, keyed by batch.
type Broadcaster interface {
	Broadcast(batchID string, rec model.AttendanceView)
}

// Options configures a Service. Zero values fall back to UTC, a ten minute
// token lifetime and no side channels.
type Options struct {
	Location *time.Location
	QRTTL    time.Duration
	Events   queue.Publisher
	Feed     Broadcaster
}

// Service marks attendance and answers attendance analytics.
type Service struct {
	repo   *store.Repository
	loc    *time.Location
	qrTTL  time.Duration
	events queue.Publisher
	feed   Broadcaster
	now    func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *store.Repository, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.QRTTL <= 0 {
		opts.QRTTL = 10 * time.Minute
	}
	return &Service{
		repo:   repo,
		loc:    opts.Location,
		qrTTL:  opts.QRTTL,
		events: opts.Events,
		feed:   opts.Feed,
		now:    time.Now,
	}
}

// Today is the current calendar day in the service's location.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(model.DateLayout)
}

// ParseDate validates a YYYY-MM-DD day. Empty input means today.
func (s *Service) ParseDate(v string) (string, error) {
	if v == "" {
		return s.Today(), nil
	}
	d, err := time.ParseInLocation(model.DateLayout, v, s.loc)
	if err != nil {
		return "", apperr.Validation("Invalid date %q, expected YYYY-MM-DD", v)
	}
	return d.Format(model.DateLayout), nil
}

func (s *Service) student(ctx context.Context, id string) (model.Student, error) {
	st, err := s.repo.Student(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return st, apperr.NotFound("Student not found")
	}
	return st, err
}

func (s *Service) batch(ctx context.Context, id string) (model.Batch, error) {
	b, err := s.repo.Batch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return b, apperr.NotFound("Batch not found")
	}
	return b, err
}

// MarkAttendance records the student PRESENT for today using a scanned token.
func (s *Service) MarkAttendance(ctx context.Context, studentID, token string) (model.Attendance, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return model.Attendance{}, err
	}
	qr, err := s.repo.QRCode(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return model.Attendance{}, apperr.NotFound("Invalid QR Code")
	}
	if err != nil {
		return model.Attendance{}, err
	}

	now := s.now()
	if qr.Expired(now) {
		return model.Attendance{}, apperr.Validation("QR Code has expired")
	}

	rec := model.Attendance{
		StudentID: st.ID,
		BatchID:   st.BatchID,
		Date:      now.In(s.loc).Format(model.DateLayout),
		Status:    model.StatusPresent,
		MarkedAt:  now.UTC(),
		QRCodeID:  qr.ID,
	}
	return s.create(ctx, st, rec, "qr", "Attendance already marked for today")
}

// MarkManualAttendance records any status for the given day.
func (s *Service) MarkManualAttendance(ctx context.Context, studentID string, status model.AttendanceStatus, date string) (model.Attendance, error) {
	if !status.Valid() {
		return model.Attendance{}, apperr.Validation("Invalid attendance status %q", status)
	}
	day, err := s.ParseDate(date)
	if err != nil {
		return model.Attendance{}, err
	}
	st, err := s.student(ctx, studentID)
	if err != nil {
		return model.Attendance{}, err
	}
	rec := model.Attendance{
		StudentID: st.ID,
		BatchID:   st.BatchID,
		Date:      day,
		Status:    status,
		MarkedAt:  s.now().UTC(),
	}
	return s.create(ctx, st, rec, "manual", "Attendance already marked for this date")
}

// create enforces one record per student per day. The pre-check gives the
// common case a clean message; the unique index settles concurrent marks.
func (s *Service) create(ctx context.Context, st model.Student, rec model.Attendance, method, duplicateMsg string) (model.Attendance, error) {
	exists, err := s.repo.AttendanceExists(ctx, rec.StudentID, rec.Date)
	if err != nil {
		return model.Attendance{}, err
	}
	if exists {
		return model.Attendance{}, apperr.Validation("%s", duplicateMsg)
	}
	if err := s.repo.CreateAttendance(ctx, &rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Attendance{}, apperr.Validation("%s", duplicateMsg)
		}
		return model.Attendance{}, err
	}
	rec.StudentName = st.Name()

	metrics.AttendanceMarked.WithLabelValues(method).Inc()
	queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeAttendanceMarked, Key: rec.BatchID})
	if s.feed != nil && rec.BatchID != "" {
		s.feed.Broadcast(rec.BatchID, rec.View())
	}
	return rec, nil
}

// BulkMarkAttendance marks each student with the given status. Entries that
// fail with a domain error are skipped; only new records are returned.
func (s *Service) BulkMarkAttendance(ctx context.Context, statuses map[string]model.AttendanceStatus, date string) ([]model.Attendance, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Attendance, 0, len(ids))
	for _, id := range ids {
		rec, err := s.MarkManualAttendance(ctx, id, statuses[id], day)
		if err != nil {
			if apperr.IsValidation(err) || apperr.IsNotFound(err) {
				continue
			}
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// MarkAllBatchStudentsPresent marks every student of the batch PRESENT,
// skipping those already marked for the day.
func (s *Service) MarkAllBatchStudentsPresent(ctx context.Context, batchID, date string) ([]model.Attendance, error) {
	if _, err := s.batch(ctx, batchID); err != nil {
		return nil, err
	}
	students, err := s.repo.StudentsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]model.AttendanceStatus, len(students))
	for _, st := range students {
		statuses[st.ID] = model.StatusPresent
	}
	return s.BulkMarkAttendance(ctx, statuses, date)
}

func (s *Service) StudentAttendance(ctx context.Context, studentID string) ([]model.Attendance, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, store.AttendanceFilter{StudentID: studentID})
}

// StudentAttendanceByRange lists records between from and to inclusive.
func (s *Service) StudentAttendanceByRange(ctx context.Context, studentID, from, to string) ([]model.Attendance, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, store.AttendanceFilter{StudentID: studentID, From: from, To: to})
}

func (s *Service) AttendanceByDate(ctx context.Context, date string) ([]model.Attendance, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, store.AttendanceFilter{Date: day})
}

func (s *Service) BatchAttendance(ctx context.Context, batchID string) ([]model.Attendance, error) {
	if _, err := s.batch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, store.AttendanceFilter{BatchID: batchID})
}

func (s *Service) BatchAttendanceByDate(ctx context.Context, batchID, date string) ([]model.Attendance, error) {
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := s.batch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, store.AttendanceFilter{BatchID: batchID, Date: day})
}

func (s *Service) UpdateAttendanceStatus(ctx context.Context, id string, status model.AttendanceStatus) (model.Attendance, error) {
	if !status.Valid() {
		return model.Attendance{}, apperr.Validation("Invalid attendance status %q", status)
	}
	if err := s.repo.UpdateAttendanceStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Attendance{}, apperr.NotFound("Attendance record not found")
		}
		return model.Attendance{}, err
	}
	rec, err := s.repo.Attendance(ctx, id)
	if err != nil {
		return model.Attendance{}, err
	}
	queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeAttendanceMarked, Key: rec.BatchID})
	return rec, nil
}

func (s *Service) DeleteAttendance(ctx context.Context, id string) error {
	rec, err := s.repo.Attendance(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Attendance record not found")
	}
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttendance(ctx, id); err != nil {
		return err
	}
	queue.Notify(ctx, s.events, queue.Event{Type: queue.TypeAttendanceMarked, Key: rec.BatchID})
	return nil
}

// period validates an inclusive day range.
func (s *Service) period(from, to string) (string, string, error) {
	if from == "" || to == "" {
		return "", "", apperr.Validation("Both start and end dates are required")
	}
	f, err := s.ParseDate(from)
	if err != nil {
		return "", "", err
	}
	t, err := s.ParseDate(to)
	if err != nil {
		return "", "", err
	}
	if t < f {
		return "", "", apperr.Validation("End date must not be before start date")
	}
	return f, t, nil
}

func statuses(recs []model.Attendance) []model.AttendanceStatus {
	out := make([]model.AttendanceStatus, len(recs))
	for i, r := range recs {
		out[i] = r.Status
	}
	return out
}
