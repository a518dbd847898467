package attendance

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"studentdesk/internal/apperr"
	"studentdesk/internal/model"
	"studentdesk/internal/queue"
	"studentdesk/internal/store"
	"studentdesk/internal/store/storetest"
)

type recordingFeed struct {
	batches []string
}

func (r *recordingFeed) Broadcast(batchID string, _ model.AttendanceView) {
	r.batches = append(r.batches, batchID)
}

type fixture struct {
	svc  *Service
	repo *store.Repository
	seed *storetest.Fixtures
	feed *recordingFeed
	q    *queue.InMemory
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := storetest.Open(t)
	feed := &recordingFeed{}
	q := queue.NewInMemory(64)
	svc := NewService(repo, Options{Events: q, Feed: feed})
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, repo: repo, seed: storetest.New(t, repo), feed: feed, q: q, now: now}
}

func wantErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("error kind = %q (%v), want %q", got, err, kind)
	}
	if msg != "" && err.Error() != msg {
		t.Fatalf("error message = %q, want %q", err.Error(), msg)
	}
}

func TestMarkAttendanceWithQRCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Morning", "")
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, b.ID)

	qr, err := f.svc.IssueQRCode(ctx, b.ID, 0)
	if err != nil {
		t.Fatalf("IssueQRCode: %v", err)
	}
	if !qr.ExpiresAt.Equal(f.now.Add(10 * time.Minute)) {
		t.Fatalf("expires at = %v, want now+10m", qr.ExpiresAt)
	}

	rec, err := f.svc.MarkAttendance(ctx, st.ID, qr.ID)
	if err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	if rec.Status != model.StatusPresent || rec.Date != "2024-03-01" || rec.QRCodeID != qr.ID || rec.BatchID != b.ID {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.StudentName != "Ada Lovelace" {
		t.Fatalf("student name = %q", rec.StudentName)
	}
	if len(f.feed.batches) != 1 || f.feed.batches[0] != b.ID {
		t.Fatalf("feed = %v, want one broadcast to %s", f.feed.batches, b.ID)
	}

	_, err = f.svc.MarkAttendance(ctx, st.ID, qr.ID)
	wantErr(t, err, apperr.KindValidation, "Attendance already marked for today")

	_, err = f.svc.MarkManualAttendance(ctx, st.ID, model.StatusLate, "2024-03-01")
	wantErr(t, err, apperr.KindValidation, "Attendance already marked for this date")
}

func TestMarkAttendanceRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Morning", "")
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, b.ID)
	qr, err := f.svc.IssueQRCode(ctx, b.ID, time.Minute)
	if err != nil {
		t.Fatalf("IssueQRCode: %v", err)
	}

	_, err = f.svc.MarkAttendance(ctx, "nobody", qr.ID)
	wantErr(t, err, apperr.KindNotFound, "Student not found")

	_, err = f.svc.MarkAttendance(ctx, st.ID, "not-a-token")
	wantErr(t, err, apperr.KindNotFound, "Invalid QR Code")

	if err := f.svc.DeactivateQRCode(ctx, qr.ID); err != nil {
		t.Fatalf("DeactivateQRCode: %v", err)
	}
	_, err = f.svc.MarkAttendance(ctx, st.ID, qr.ID)
	wantErr(t, err, apperr.KindValidation, "QR Code has expired")
}

func TestExpiredQRCodeCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Morning", "")
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, b.ID)

	qr := model.QRCode{
		BatchID:   b.ID,
		ValidDate: "2024-03-01",
		ExpiresAt: f.now.Add(-time.Minute),
		Active:    true,
	}
	if err := f.repo.CreateQRCode(ctx, &qr); err != nil {
		t.Fatalf("CreateQRCode: %v", err)
	}

	_, err := f.svc.MarkAttendance(ctx, st.ID, qr.ID)
	wantErr(t, err, apperr.KindValidation, "QR Code has expired")

	recs, err := f.svc.StudentAttendance(ctx, st.ID)
	if err != nil {
		t.Fatalf("StudentAttendance: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("records = %d, want 0", len(recs))
	}
}

func TestTodayFollowsConfiguredLocation(t *testing.T) {
	f := newFixture(t)
	f.svc.loc = time.FixedZone("AEST", 10*3600)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC) }

	if got := f.svc.Today(); got != "2024-03-02" {
		t.Fatalf("Today = %q, want 2024-03-02", got)
	}
}

func TestManualAttendanceValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, "")

	_, err := f.svc.MarkManualAttendance(ctx, st.ID, "SICK", "2024-03-01")
	wantErr(t, err, apperr.KindValidation, "")

	_, err = f.svc.MarkManualAttendance(ctx, st.ID, model.StatusAbsent, "01/03/2024")
	wantErr(t, err, apperr.KindValidation, "")

	rec, err := f.svc.MarkManualAttendance(ctx, st.ID, model.StatusAbsent, "")
	if err != nil {
		t.Fatalf("MarkManualAttendance: %v", err)
	}
	if rec.Date != "2024-03-01" || rec.BatchID != "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(f.feed.batches) != 0 {
		t.Fatalf("batchless mark should not broadcast, got %v", f.feed.batches)
	}
}

func TestBulkMarkSkipsAlreadyMarkedStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Evening", "")

	var students []model.Student
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		students = append(students, f.seed.Student(name, "Student", model.CourseDevOps, b.ID))
	}
	for _, st := range students[:2] {
		if _, err := f.svc.MarkManualAttendance(ctx, st.ID, model.StatusLate, "2024-02-28"); err != nil {
			t.Fatalf("pre-mark: %v", err)
		}
	}

	statuses := map[string]model.AttendanceStatus{}
	for _, st := range students {
		statuses[st.ID] = model.StatusPresent
	}
	statuses["ghost"] = model.StatusPresent

	got, err := f.svc.BulkMarkAttendance(ctx, statuses, "2024-02-28")
	if err != nil {
		t.Fatalf("BulkMarkAttendance: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("new records = %d, want 3", len(got))
	}
	for _, rec := range got {
		if rec.Status != model.StatusPresent || rec.Date != "2024-02-28" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	}
}

func TestMarkAllBatchStudentsPresent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Evening", "")
	other := f.seed.Batch("Other", "")
	first := f.seed.Student("A", "One", model.CourseMobile, b.ID)
	f.seed.Student("B", "Two", model.CourseMobile, b.ID)
	f.seed.Student("C", "Three", model.CourseMobile, other.ID)

	if _, err := f.svc.MarkManualAttendance(ctx, first.ID, model.StatusAbsent, "2024-03-01"); err != nil {
		t.Fatalf("pre-mark: %v", err)
	}

	got, err := f.svc.MarkAllBatchStudentsPresent(ctx, b.ID, "2024-03-01")
	if err != nil {
		t.Fatalf("MarkAllBatchStudentsPresent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("new records = %d, want 1", len(got))
	}

	_, err = f.svc.MarkAllBatchStudentsPresent(ctx, "missing", "2024-03-01")
	wantErr(t, err, apperr.KindNotFound, "Batch not found")
}

func TestAnalyticsAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Morning", "")
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, b.ID)

	marks := map[string]model.AttendanceStatus{
		"2024-02-26": model.StatusPresent,
		"2024-02-27": model.StatusAbsent,
		"2024-02-28": model.StatusLate,
		"2024-02-29": model.StatusPresent,
		"2024-01-10": model.StatusPresent,
	}
	for day, status := range marks {
		if _, err := f.svc.MarkManualAttendance(ctx, st.ID, status, day); err != nil {
			t.Fatalf("mark %s: %v", day, err)
		}
	}

	stats, err := f.svc.StudentAnalytics(ctx, st.ID)
	if err != nil {
		t.Fatalf("StudentAnalytics: %v", err)
	}
	if stats.Total != 5 || stats.Present != 3 || stats.AttendancePercentage != 60 {
		t.Fatalf("student stats = %+v", stats)
	}

	report, err := f.svc.StudentReport(ctx, st.ID, "2024-02-01", "2024-02-29")
	if err != nil {
		t.Fatalf("StudentReport: %v", err)
	}
	if len(report.Records) != 4 || report.Analytics.Total != 4 || report.Analytics.AttendancePercentage != 50 {
		t.Fatalf("report = %+v", report)
	}
	if report.Period != "2024-02-01 to 2024-02-29" || report.Name != "Ada Lovelace" {
		t.Fatalf("report header = %q / %q", report.Period, report.Name)
	}

	_, err = f.svc.BatchReport(ctx, b.ID, "2024-03-01", "2024-02-01")
	wantErr(t, err, apperr.KindValidation, "")

	weekly, err := f.svc.WeeklySummary(ctx)
	if err != nil {
		t.Fatalf("WeeklySummary: %v", err)
	}
	if weekly.StartDate != "2024-02-24" || weekly.EndDate != "2024-03-01" || weekly.Total != 4 || len(weekly.Daily) != 4 {
		t.Fatalf("weekly = %+v", weekly)
	}

	today, err := f.svc.TodaySummary(ctx)
	if err != nil {
		t.Fatalf("TodaySummary: %v", err)
	}
	if today.Total != 0 || today.AttendancePercentage != 0 {
		t.Fatalf("today = %+v", today)
	}

	overall, err := f.svc.OverallAnalytics(ctx)
	if err != nil {
		t.Fatalf("OverallAnalytics: %v", err)
	}
	if overall.Total != 5 {
		t.Fatalf("overall total = %d, want 5", overall.Total)
	}
}

func TestUpdateAndDeleteAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, "")
	rec, err := f.svc.MarkManualAttendance(ctx, st.ID, model.StatusAbsent, "2024-03-01")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}

	updated, err := f.svc.UpdateAttendanceStatus(ctx, rec.ID, model.StatusLate)
	if err != nil {
		t.Fatalf("UpdateAttendanceStatus: %v", err)
	}
	if updated.Status != model.StatusLate {
		t.Fatalf("status = %s, want LATE", updated.Status)
	}

	if err := f.svc.DeleteAttendance(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteAttendance: %v", err)
	}
	wantErr(t, f.svc.DeleteAttendance(ctx, rec.ID), apperr.KindNotFound, "Attendance record not found")

	_, err = f.svc.UpdateAttendanceStatus(ctx, rec.ID, model.StatusPresent)
	wantErr(t, err, apperr.KindNotFound, "Attendance record not found")
}

func TestRenderQRCodeProducesPNG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seed.Batch("Morning", "")
	qr, err := f.svc.IssueQRCode(ctx, b.ID, time.Minute)
	if err != nil {
		t.Fatalf("IssueQRCode: %v", err)
	}

	png, err := f.svc.RenderQRCode(ctx, qr.ID, 128)
	if err != nil {
		t.Fatalf("RenderQRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}

	_, err = f.svc.RenderQRCode(ctx, "unknown", 128)
	wantErr(t, err, apperr.KindNotFound, "Invalid QR Code")

	active, err := f.svc.ActiveQRCodes(ctx, b.ID)
	if err != nil {
		t.Fatalf("ActiveQRCodes: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active codes = %d, want 1", len(active))
	}
	f.svc.now = func() time.Time { return f.now.Add(time.Hour) }
	active, err = f.svc.ActiveQRCodes(ctx, b.ID)
	if err != nil {
		t.Fatalf("ActiveQRCodes: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active codes after expiry = %d, want 0", len(active))
	}
}

func TestSummaryWindowsIncludeToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, "")

	for _, day := range []string{"2024-01-31", "2024-02-01", "2024-02-23", "2024-02-24", "2024-03-01"} {
		if _, err := f.svc.MarkManualAttendance(ctx, st.ID, model.StatusPresent, day); err != nil {
			t.Fatalf("mark %s: %v", day, err)
		}
	}

	cases := []struct {
		name  string
		get   func(context.Context) (Summary, error)
		start string
		total int
	}{
		{"today", f.svc.TodaySummary, "2024-03-01", 1},
		{"weekly", f.svc.WeeklySummary, "2024-02-24", 2},
		{"monthly", f.svc.MonthlySummary, "2024-02-01", 4},
	}
	for _, tc := range cases {
		sum, err := tc.get(ctx)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if sum.StartDate != tc.start || sum.EndDate != "2024-03-01" || sum.Total != tc.total {
			t.Fatalf("%s = start %s end %s total %d, want start %s total %d",
				tc.name, sum.StartDate, sum.EndDate, sum.Total, tc.start, tc.total)
		}
	}
}

func TestConcurrentManualMarksStoreOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.seed.Student("Ada", "Lovelace", model.CourseFullStack, "")

	const n = 20
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.MarkManualAttendance(ctx, st.ID, model.StatusPresent, "2024-03-01")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantErr(t, err, apperr.KindValidation, "Attendance already marked for this date")
	}
	if ok != 1 {
		t.Fatalf("successful marks = %d, want 1", ok)
	}
	recs, err := f.svc.StudentAttendance(ctx, st.ID)
	if err != nil {
		t.Fatalf("StudentAttendance: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored records = %d, want 1", len(recs))
	}
}
