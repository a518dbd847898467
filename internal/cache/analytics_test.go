package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"studentdesk/internal/analytics"
	"studentdesk/internal/queue"
)

type fakeSources struct {
	calls map[string]int
	err   error
}

func (f *fakeSources) hit(name string) { f.calls[name]++ }

func (f *fakeSources) BatchAnalytics(_ context.Context, batchID string) (analytics.AttendanceStats, error) {
	f.hit("batch:" + batchID)
	return analytics.AttendanceStats{Total: 2, Present: 1, AttendancePercentage: 50}, f.err
}

func (f *fakeSources) OverallAnalytics(context.Context) (analytics.AttendanceStats, error) {
	f.hit("attendance:overall")
	return analytics.AttendanceStats{}, f.err
}

func (f *fakeSources) QuizAnalytics(_ context.Context, quizID string) (analytics.ScoreStats, error) {
	f.hit("quiz:" + quizID)
	return analytics.ScoreStats{TotalAttempts: 1, AverageScore: 75}, f.err
}

type fakeFeedback struct{ *fakeSources }

func (f fakeFeedback) TrainerAnalytics(_ context.Context, id string) (analytics.RatingStats, error) {
	f.hit("trainer:" + id)
	return analytics.Ratings([]int{5}, nil), f.err
}

func (f fakeFeedback) CourseAnalytics(_ context.Context, id string) (analytics.RatingStats, error) {
	f.hit("course:" + id)
	return analytics.Ratings([]int{4}, nil), f.err
}

func (f fakeFeedback) OverallAnalytics(context.Context) (analytics.RatingStats, error) {
	f.hit("feedback:overall")
	return analytics.Ratings(nil, nil), f.err
}

func newFakes() (*fakeSources, fakeFeedback) {
	src := &fakeSources{calls: map[string]int{}}
	return src, fakeFeedback{src}
}

func TestAnalyticsWithoutRedisComputesEveryTime(t *testing.T) {
	src, fb := newFakes()
	a := NewAnalytics(New(nil, time.Minute), src, src, fb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := a.Quiz(ctx, "q1")
		if err != nil {
			t.Fatalf("Quiz: %v", err)
		}
		if got.AverageScore != 75 {
			t.Fatalf("average = %v, want 75", got.AverageScore)
		}
	}
	if src.calls["quiz:q1"] != 2 {
		t.Fatalf("compute calls = %d, want 2", src.calls["quiz:q1"])
	}
}

func TestAnalyticsSurvivesUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	src, fb := newFakes()
	a := NewAnalytics(New(client, time.Minute), src, src, fb)

	got, err := a.BatchAttendance(context.Background(), "b1")
	if err != nil {
		t.Fatalf("BatchAttendance: %v", err)
	}
	if got.AttendancePercentage != 50 {
		t.Fatalf("percentage = %v, want 50", got.AttendancePercentage)
	}
}

func TestAnalyticsPropagatesComputeErrors(t *testing.T) {
	src, fb := newFakes()
	src.err = errors.New("db down")
	a := NewAnalytics(New(nil, 0), src, src, fb)

	if _, err := a.OverallFeedback(context.Background()); err == nil {
		t.Fatal("expected compute error")
	}
}

func TestRefreshRoutesEvents(t *testing.T) {
	src, fb := newFakes()
	a := NewAnalytics(New(nil, 0), src, src, fb)
	ctx := context.Background()

	cases := []struct {
		evt  queue.Event
		want []string
	}{
		{queue.Event{Type: queue.TypeAttendanceMarked, Key: "b1"}, []string{"batch:b1", "attendance:overall"}},
		{queue.Event{Type: queue.TypeAttendanceMarked}, []string{"attendance:overall"}},
		{queue.Event{Type: queue.TypeQuizAttempted, Key: "q9"}, []string{"quiz:q9"}},
		{queue.Event{Type: queue.TypeQuizDeleted, Key: "q9"}, nil},
		{queue.Event{Type: queue.TypeFeedbackSubmitted, Key: "trainer:t1"}, []string{"trainer:t1", "feedback:overall"}},
		{queue.Event{Type: queue.TypeFeedbackSubmitted, Key: "course:c1"}, []string{"course:c1", "feedback:overall"}},
		{queue.Event{Type: queue.TypeFeedbackSubmitted, Key: "overall"}, []string{"feedback:overall"}},
	}
	for _, tc := range cases {
		src.calls = map[string]int{}
		if err := a.Refresh(ctx, tc.evt); err != nil {
			t.Fatalf("Refresh(%+v): %v", tc.evt, err)
		}
		if len(src.calls) != len(tc.want) {
			t.Fatalf("Refresh(%+v) calls = %v, want %v", tc.evt, src.calls, tc.want)
		}
		for _, name := range tc.want {
			if src.calls[name] != 1 {
				t.Fatalf("Refresh(%+v) calls = %v, want %v", tc.evt, src.calls, tc.want)
			}
		}
	}

	if err := a.Refresh(ctx, queue.Event{Type: "checkin"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
