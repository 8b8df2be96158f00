package bible

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanon(t *testing.T) {
	assert.Len(t, Books(), 66)
	assert.Equal(t, 1189, TotalChapters())

	ot := 0
	for _, b := range Books() {
		if b.Testament == OldTestament {
			ot++
		}
	}
	assert.Equal(t, 39, ot)
}

func TestFindBook(t *testing.T) {
	b, err := FindBook("창세기")
	require.NoError(t, err)
	assert.Equal(t, "Genesis", b.Name)

	b, err = FindBook("1 corinthians")
	require.NoError(t, err)
	assert.Equal(t, 16, b.Chapters)

	b, err = FindBook("psalm")
	require.NoError(t, err)
	assert.Equal(t, "Psalms", b.Name)

	_, err = FindBook("Maccabees")
	assert.ErrorIs(t, err, ErrUnknownBook)
}

func TestValidateChapter(t *testing.T) {
	_, err := ValidateChapter("Jude", 1)
	assert.NoError(t, err)

	_, err = ValidateChapter("Jude", 2)
	assert.ErrorIs(t, err, ErrInvalidChapter)

	_, err = ValidateChapter("Genesis", 0)
	assert.ErrorIs(t, err, ErrInvalidChapter)
}

func TestPlanShape(t *testing.T) {
	days := Plan()
	require.Len(t, days, DaysInPlan)

	for _, d := range days {
		require.Len(t, d.Readings, ReadingsPerDay, "day %d", d.Number)
		for i, r := range d.Readings {
			assert.Equal(t, i+1, r.ID)
			_, err := ValidateChapter(r.Book, r.Chapter)
			assert.NoError(t, err, "day %d reading %d", d.Number, r.ID)
		}
	}
}

func TestPlanTracks(t *testing.T) {
	first, err := ReadingsForDay(1)
	require.NoError(t, err)
	assert.Equal(t, "Genesis 1", first[0].Reference())
	assert.Equal(t, "Matthew 1", first[1].Reference())
	assert.Equal(t, "Ezra 1", first[2].Reference())
	assert.Equal(t, "Acts 1", first[3].Reference())

	second, err := ReadingsForDay(2)
	require.NoError(t, err)
	assert.Equal(t, "Genesis 2", second[0].Reference())

	// Genesis has 50 chapters, so day 51 moves into Exodus.
	day51, err := ReadingsForDay(51)
	require.NoError(t, err)
	assert.Equal(t, "Exodus 1", day51[0].Reference())
}

func TestPlanWrapsAfterRevelation(t *testing.T) {
	// Acts 1 through Revelation 22 is 171 chapters.
	last, err := ReadingByID(171, 4)
	require.NoError(t, err)
	assert.Equal(t, "Revelation 22", last.Reference())

	wrapped, err := ReadingByID(172, 4)
	require.NoError(t, err)
	assert.Equal(t, "Genesis 1", wrapped.Reference())
}

func TestReadingsForDayBounds(t *testing.T) {
	_, err := ReadingsForDay(0)
	assert.ErrorIs(t, err, ErrInvalidDay)
	_, err = ReadingsForDay(366)
	assert.ErrorIs(t, err, ErrInvalidDay)

	_, err = ReadingByID(1, 5)
	assert.Error(t, err)
}

func TestDayForDate(t *testing.T) {
	assert.Equal(t, 1, DayForDate(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, DayForDate(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, DayForDate(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-02-01", FormatDate(DateForDay(2025, 32)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())

	for _, bad := range []string{"2025-3-10", "2025/03/10", "2025-02-30", "", "today"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestReferenceWithVerses(t *testing.T) {
	start, end := 16, 18
	r := Reading{Book: "John", Chapter: 3, VerseStart: &start, VerseEnd: &end}
	assert.Equal(t, "John 3:16-18", r.Reference())

	r.VerseEnd = &start
	assert.Equal(t, "John 3:16", r.Reference())
}
