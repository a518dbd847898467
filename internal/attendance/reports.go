package attendance

import (
	"context"
	"sort"

	"studentdesk/internal/analytics"
	"studentdesk/internal/model"
	"studentdesk/internal/store"
)

// Report is a period view over one student's or one batch's records.
type Report struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Period    string                    `json:"report_period"`
	Records   []model.AttendanceView    `json:"attendance_records"`
	Analytics analytics.AttendanceStats `json:"analytics"`
}

// DailyStats is the per-day breakdown inside a Summary.
type DailyStats struct {
	Date string `json:"date"`
	analytics.AttendanceStats
}

// Summary aggregates all records over a trailing window ending today.
type Summary struct {
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	analytics.AttendanceStats
	Daily []DailyStats `json:"daily"`
}

func (s *Service) StudentAnalytics(ctx context.Context, studentID string) (analytics.AttendanceStats, error) {
	recs, err := s.StudentAttendance(ctx, studentID)
	if err != nil {
		return analytics.AttendanceStats{}, err
	}
	return analytics.Attendance(statuses(recs)), nil
}

func (s *Service) BatchAnalytics(ctx context.Context, batchID string) (analytics.AttendanceStats, error) {
	recs, err := s.BatchAttendance(ctx, batchID)
	if err != nil {
		return analytics.AttendanceStats{}, err
	}
	return analytics.Attendance(statuses(recs)), nil
}

func (s *Service) OverallAnalytics(ctx context.Context) (analytics.AttendanceStats, error) {
	recs, err := s.repo.ListAttendance(ctx, store.AttendanceFilter{})
	if err != nil {
		return analytics.AttendanceStats{}, err
	}
	return analytics.Attendance(statuses(recs)), nil
}

// StudentReport covers the student's records between from and to inclusive.
// The analytics describe the same period.
func (s *Service) StudentReport(ctx context.Context, studentID, from, to string) (Report, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return Report{}, err
	}
	st, err := s.student(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	recs, err := s.repo.ListAttendance(ctx, store.AttendanceFilter{StudentID: studentID, From: from, To: to})
	if err != nil {
		return Report{}, err
	}
	return newReport(st.ID, st.Name(), from, to, recs), nil
}

// BatchReport covers the batch's records between from and to inclusive.
func (s *Service) BatchReport(ctx context.Context, batchID, from, to string) (Report, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return Report{}, err
	}
	b, err := s.batch(ctx, batchID)
	if err != nil {
		return Report{}, err
	}
	recs, err := s.repo.ListAttendance(ctx, store.AttendanceFilter{BatchID: batchID, From: from, To: to})
	if err != nil {
		return Report{}, err
	}
	return newReport(b.ID, b.Name, from, to, recs), nil
}

func newReport(id, name, from, to string, recs []model.Attendance) Report {
	views := make([]model.AttendanceView, len(recs))
	for i, r := range recs {
		views[i] = r.View()
	}
	return Report{
		ID:        id,
		Name:      name,
		Period:    from + " to " + to,
		Records:   views,
		Analytics: analytics.Attendance(statuses(recs)),
	}
}

func (s *Service) TodaySummary(ctx context.Context) (Summary, error) {
	return s.summary(ctx, "Today", 1)
}

func (s *Service) WeeklySummary(ctx context.Context) (Summary, error) {
	return s.summary(ctx, "Last 7 days", 7)
}

func (s *Service) MonthlySummary(ctx context.Context) (Summary, error) {
	return s.summary(ctx, "Last 30 days", 30)
}

// summary covers the last days calendar days, today included.
func (s *Service) summary(ctx context.Context, label string, days int) (Summary, error) {
	today := s.now().In(s.loc)
	end := today.Format(model.DateLayout)
	start := today.AddDate(0, 0, 1-days).Format(model.DateLayout)

	recs, err := s.repo.ListAttendance(ctx, store.AttendanceFilter{From: start, To: end})
	if err != nil {
		return Summary{}, err
	}

	byDay := map[string][]model.AttendanceStatus{}
	for _, r := range recs {
		byDay[r.Date] = append(byDay[r.Date], r.Status)
	}
	daily := make([]DailyStats, 0, len(byDay))
	for day, sts := range byDay {
		daily = append(daily, DailyStats{Date: day, AttendanceStats: analytics.Attendance(sts)})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return Summary{
		Period:          label,
		StartDate:       start,
		EndDate:         end,
		AttendanceStats: analytics.Attendance(statuses(recs)),
		Daily:           daily,
	}, nil
}
