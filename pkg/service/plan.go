package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
)

const dateLayout = "2006-01-02"

type PlanService struct {
	s *Session
}

func NewPlanService(s *Session) *PlanService {
	return &PlanService{s: s}
}

// Today prints today's readings with progress
func (p *PlanService) Today(ctx context.Context) error {
	if err := p.s.RequireAuth(); err != nil {
		return err
	}
	st, err := p.s.Store()
	if err != nil {
		return err
	}
	day, err := st.Today(ctx)
	if err != nil {
		return err
	}
	return printDay(day)
}

// Date prints one date's readings with progress
func (p *PlanService) Date(ctx context.Context, date string) error {
	if err := p.s.RequireAuth(); err != nil {
		return err
	}
	if err := validDate(date); err != nil {
		return err
	}
	st, err := p.s.Store()
	if err != nil {
		return err
	}
	day, err := st.PlanForDate(ctx, date)
	if err != nil {
		return err
	}
	return printDay(day)
}

// Day prints the plan content of a day number
func (p *PlanService) Day(ctx context.Context, n int) error {
	if n < 1 || n > 365 {
		return fmt.Errorf("day must be between 1 and 365, got %d", n)
	}
	day, err := p.s.API.PlanDay(ctx, n)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(day.Readings))
	for _, r := range day.Readings {
		rows = append(rows, []string{strconv.Itoa(r.ID), reference(r)})
	}
	title := fmt.Sprintf("Day %d · %s", day.DayNumber, day.DateLabel)
	return output.PrintList(title, day, []string{"ID", "PASSAGE"}, rows)
}

// SetDone marks a reading of date done or not. An empty date is today.
func (p *PlanService) SetDone(ctx context.Context, date string, readingID int, done bool) error {
	if err := p.s.RequireAuth(); err != nil {
		return err
	}
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if err := validDate(date); err != nil {
		return err
	}
	st, err := p.s.Store()
	if err != nil {
		return err
	}
	progress, err := st.SetReadingProgress(ctx, date, readingID, done)
	if err != nil {
		return reportQueued(err, "reading progress")
	}
	if progress.IsCompleted {
		output.PrintSuccess("✓ %s %d marked as read", progress.Book, progress.Chapter)
	} else {
		output.PrintInfo("%s %d marked as unread", progress.Book, progress.Chapter)
	}
	return nil
}

// History prints per-date completion counts
func (p *PlanService) History(ctx context.Context, from, to string) error {
	if err := p.s.RequireAuth(); err != nil {
		return err
	}
	for _, d := range []string{from, to} {
		if d != "" {
			if err := validDate(d); err != nil {
				return err
			}
		}
	}
	h, err := p.s.API.ProgressHistory(ctx, from, to)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(h.History))
	for _, d := range h.History {
		rows = append(rows, []string{d.Date, strconv.Itoa(d.Completed)})
	}
	return output.PrintList(fmt.Sprintf("Progress %s → %s", h.From, h.To), h, []string{"DATE", "COMPLETED"}, rows)
}

// Progress prints the current position and streak
func (p *PlanService) Progress(ctx context.Context) error {
	if err := p.s.RequireAuth(); err != nil {
		return err
	}
	prog, err := p.s.API.MyProgress(ctx)
	if err != nil {
		return err
	}
	return output.Print("My progress", prog)
}

func printDay(day *api.DailyReadings) error {
	rows := make([][]string, 0, len(day.Readings))
	for _, r := range day.Readings {
		rows = append(rows, []string{strconv.Itoa(r.ID), reference(r.Reading), check(r.IsCompleted)})
	}
	title := fmt.Sprintf("%s · Day %d · %d/%d read", day.Date, day.DayNumber, day.CompletedCount, day.TotalCount)
	return output.PrintList(title, day, []string{"ID", "PASSAGE", "READ"}, rows)
}

func validDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}
