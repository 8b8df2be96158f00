package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/macchain/backend/pkg/output"
)

type StatsService struct {
	s *Session
}

func NewStatsService(s *Session) *StatsService {
	return &StatsService{s: s}
}

// Summary prints the 30-day statistics, or the overview for another period
func (st *StatsService) Summary(ctx context.Context, period int) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	if period > 0 && period != 30 {
		ov, err := st.s.API.StatsOverview(ctx, period)
		if err != nil {
			return err
		}
		return output.Print(fmt.Sprintf("Last %d days", ov.Period), ov)
	}
	stats, err := st.s.API.Stats(ctx)
	if err != nil {
		return err
	}
	return output.Print("Reading statistics", stats)
}

// Patterns prints completions by hour, weekday and month
func (st *StatsService) Patterns(ctx context.Context, period int) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	p, err := st.s.API.StatsPatterns(ctx, period)
	if err != nil {
		return err
	}
	weekdays := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	rows := make([][]string, 0, 7)
	for i, n := range p.Weekly {
		rows = append(rows, []string{weekdays[i], strconv.Itoa(n), bar(n, maxOf(p.Weekly[:]))})
	}
	return output.PrintList(fmt.Sprintf("Reading by weekday, last %d days", p.Period), p, []string{"DAY", "READINGS", ""}, rows)
}

// Growth compares this period with the previous one
func (st *StatsService) Growth(ctx context.Context, period int) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	g, err := st.s.API.StatsGrowth(ctx, period)
	if err != nil {
		return err
	}
	return output.Print(fmt.Sprintf("Growth over %d days", g.Period), g)
}

func maxOf(ns []int) int {
	m := 0
	for _, n := range ns {
		if n > m {
			m = n
		}
	}
	return m
}

func bar(n, top int) string {
	const width = 20
	if top == 0 {
		return ""
	}
	filled := n * width / top
	out := make([]rune, filled)
	for i := range out {
		out[i] = '█'
	}
	return string(out)
}
