package stats

import (
	"sort"
	"time"

	"github.com/macchain/backend/internal/bible"
)

// Streak is a run of consecutive calendar days with at least one reading
type Streak struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// CurrentStreak counts consecutive read days ending today, or ending
// yesterday when nothing has been read yet today. dates may be in any
// order and may repeat.
func CurrentStreak(dates []string, today time.Time) int {
	read := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		read[d] = struct{}{}
	}

	day := truncateDay(today)
	if _, ok := read[bible.FormatDate(day)]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := read[bible.FormatDate(day)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// LongestStreak finds the longest run; ties keep the earliest run
func LongestStreak(dates []string) Streak {
	parsed := make([]time.Time, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if _, dup := seen[d]; dup {
			continue
		}
		t, err := bible.ParseDate(d)
		if err != nil {
			continue
		}
		seen[d] = struct{}{}
		parsed = append(parsed, t)
	}
	if len(parsed) == 0 {
		return Streak{}
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	best := Streak{Days: 1, StartDate: bible.FormatDate(parsed[0]), EndDate: bible.FormatDate(parsed[0])}
	runStart, runLen := parsed[0], 1
	for i := 1; i < len(parsed); i++ {
		if parsed[i-1].AddDate(0, 0, 1).Equal(parsed[i]) {
			runLen++
		} else {
			runStart, runLen = parsed[i], 1
		}
		if runLen > best.Days {
			best = Streak{Days: runLen, StartDate: bible.FormatDate(runStart), EndDate: bible.FormatDate(parsed[i])}
		}
	}
	return best
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
