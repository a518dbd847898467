// Package analytics holds the pure reducers shared by the attendance, quiz and
// feedback engines. Inputs are never modified.
package analytics

import (
	"math"

	"studentdesk/internal/model"
)

// RatingStats summarises a set of 1..5 ratings.
type RatingStats struct {
	Count             int         `json:"total_feedback"`
	Average           float64     `json:"average_rating"`
	Distribution      map[int]int `json:"rating_distribution"`
	AnonymousCount    int         `json:"anonymous_count"`
	NonAnonymousCount int         `json:"non_anonymous_count"`
	Highest           int         `json:"highest_rating"`
	Lowest            int         `json:"lowest_rating"`
}

// Ratings reduces parallel rating/anonymous sequences. anonymous may be
// shorter than ratings; missing flags count as named.
func Ratings(ratings []int, anonymous []bool) RatingStats {
	stats := RatingStats{Count: len(ratings), Distribution: map[int]int{}}
	if len(ratings) == 0 {
		return stats
	}

	sum := 0
	stats.Highest, stats.Lowest = ratings[0], ratings[0]
	for i, r := range ratings {
		sum += r
		stats.Distribution[r]++
		if r > stats.Highest {
			stats.Highest = r
		}
		if r < stats.Lowest {
			stats.Lowest = r
		}
		if i < len(anonymous) && anonymous[i] {
			stats.AnonymousCount++
		}
	}
	stats.NonAnonymousCount = stats.Count - stats.AnonymousCount
	stats.Average = Round2(float64(sum) / float64(stats.Count))
	return stats
}

// ScoreStats summarises quiz attempt scores.
type ScoreStats struct {
	TotalAttempts  int     `json:"total_attempts"`
	AverageScore   float64 `json:"average_score"`
	HighestScore   int     `json:"highest_score"`
	LowestScore    int     `json:"lowest_score"`
	CompletionRate float64 `json:"completion_rate"`
}

// Scores reduces attempt scores. CompletionRate is a percentage and is 0 when
// there are no attempts.
func Scores(scores []int, completed []bool) ScoreStats {
	stats := ScoreStats{TotalAttempts: len(scores)}
	if len(scores) == 0 {
		return stats
	}

	sum, done := 0, 0
	stats.HighestScore, stats.LowestScore = scores[0], scores[0]
	for i, s := range scores {
		sum += s
		if s > stats.HighestScore {
			stats.HighestScore = s
		}
		if s < stats.LowestScore {
			stats.LowestScore = s
		}
		if i < len(completed) && completed[i] {
			done++
		}
	}
	stats.AverageScore = Round2(float64(sum) / float64(len(scores)))
	stats.CompletionRate = Round2(float64(done) * 100 / float64(len(scores)))
	return stats
}

// AttendanceStats counts records per status.
type AttendanceStats struct {
	Total                int     `json:"total_records"`
	Present              int     `json:"present_count"`
	Absent               int     `json:"absent_count"`
	Late                 int     `json:"late_count"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// Attendance reduces statuses. The percentage is present*100/total, 0 for an
// empty input.
func Attendance(statuses []model.AttendanceStatus) AttendanceStats {
	stats := AttendanceStats{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case model.StatusPresent:
			stats.Present++
		case model.StatusAbsent:
			stats.Absent++
		case model.StatusLate:
			stats.Late++
		}
	}
	if stats.Total > 0 {
		stats.AttendancePercentage = Round2(float64(stats.Present) * 100 / float64(stats.Total))
	}
	return stats
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
