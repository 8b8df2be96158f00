package bible

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DaysInPlan is the plan length; leap days reuse the final day.
const DaysInPlan = 365

// ReadingsPerDay is fixed by the plan
const ReadingsPerDay = 4

var (
	ErrInvalidDay  = errors.New("plan day must be between 1 and 365")
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")
)

// DateLayout is the wire and storage format of plan dates
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Reading is one passage of a plan day
type Reading struct {
	ID         int    `json:"id"`
	Book       string `json:"book"`
	BookKorean string `json:"book_korean"`
	Chapter    int    `json:"chapter"`
	VerseStart *int   `json:"verse_start,omitempty"`
	VerseEnd   *int   `json:"verse_end,omitempty"`
}

// Reference renders "Genesis 1" or "John 3:16-18"
func (r Reading) Reference() string {
	ref := fmt.Sprintf("%s %d", r.Book, r.Chapter)
	if r.VerseStart != nil {
		ref = fmt.Sprintf("%s:%d", ref, *r.VerseStart)
		if r.VerseEnd != nil && *r.VerseEnd != *r.VerseStart {
			ref = fmt.Sprintf("%s-%d", ref, *r.VerseEnd)
		}
	}
	return ref
}

// Day is one entry of the annual plan
type Day struct {
	Number   int       `json:"day_number"`
	Readings []Reading `json:"readings"`
}

type chapterRef struct {
	book    int
	chapter int
}

var flatChapters = func() []chapterRef {
	refs := make([]chapterRef, 0, 1189)
	for i, b := range canon {
		for ch := 1; ch <= b.Chapters; ch++ {
			refs = append(refs, chapterRef{book: i, chapter: ch})
		}
	}
	return refs
}()

// trackStarts are the books each of the four daily tracks begins with
var trackStarts = [ReadingsPerDay]string{"Genesis", "Matthew", "Ezra", "Acts"}

var trackOffsets = func() [ReadingsPerDay]int {
	var offsets [ReadingsPerDay]int
	for t, name := range trackStarts {
		target := bookIndex[normalize(name)]
		for i, ref := range flatChapters {
			if ref.book == target {
				offsets[t] = i
				break
			}
		}
	}
	return offsets
}()

var plan = func() []Day {
	days := make([]Day, DaysInPlan)
	for d := 0; d < DaysInPlan; d++ {
		readings := make([]Reading, ReadingsPerDay)
		for t := 0; t < ReadingsPerDay; t++ {
			ref := flatChapters[(trackOffsets[t]+d)%len(flatChapters)]
			b := canon[ref.book]
			readings[t] = Reading{ID: t + 1, Book: b.Name, BookKorean: b.Korean, Chapter: ref.chapter}
		}
		days[d] = Day{Number: d + 1, Readings: readings}
	}
	return days
}()

// Plan returns a copy of the full annual plan
func Plan() []Day {
	out := make([]Day, len(plan))
	for i, d := range plan {
		out[i] = Day{Number: d.Number, Readings: append([]Reading(nil), d.Readings...)}
	}
	return out
}

// ReadingsForDay returns the four readings for a plan day (1..365)
func ReadingsForDay(day int) ([]Reading, error) {
	if day < 1 || day > DaysInPlan {
		return nil, ErrInvalidDay
	}
	return append([]Reading(nil), plan[day-1].Readings...), nil
}

// ReadingByID returns one reading of a day
func ReadingByID(day, readingID int) (Reading, error) {
	readings, err := ReadingsForDay(day)
	if err != nil {
		return Reading{}, err
	}
	if readingID < 1 || readingID > ReadingsPerDay {
		return Reading{}, fmt.Errorf("reading id must be between 1 and %d", ReadingsPerDay)
	}
	return readings[readingID-1], nil
}

// DayForDate maps a calendar date to its plan day
func DayForDate(t time.Time) int {
	day := t.YearDay()
	if day > DaysInPlan {
		day = DaysInPlan
	}
	return day
}

// DateForDay returns the calendar date of a plan day in the given year
func DateForDay(year, day int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
}

// ParseDate validates a YYYY-MM-DD plan date
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders a plan date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
