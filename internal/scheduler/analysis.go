// Package scheduler runs the background jobs: nightly analysis
// pre-generation and per-user reading reminders.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultVersesPerReading is how many verses of each reading are prepared
const DefaultVersesPerReading = 5

// readingConcurrency bounds how many readings are prepared at once
const readingConcurrency = 4

// VerseEnsurer creates a stored verse analysis unless one exists
type VerseEnsurer interface {
	EnsureVerse(ctx context.Context, book string, chapter, verse int, source string) (bool, error)
}

// RunResult summarizes one analysis run
type RunResult struct {
	Day     int `json:"day"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// DailyAnalysisScheduler prepares verse analyses for the day's readings
// once a day at the configured hour
type DailyAnalysisScheduler struct {
	analyses VerseEnsurer
	cfg      config.SchedulerConfig
	verses   int
	loc      *time.Location
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDailyAnalysisScheduler creates the scheduler. Times are evaluated in
// loc; nil means Asia/Seoul.
func NewDailyAnalysisScheduler(analyses VerseEnsurer, cfg config.SchedulerConfig, loc *time.Location) *DailyAnalysisScheduler {
	if loc == nil {
		loc = seoul()
	}
	verses := cfg.VersesPerChapter
	if verses <= 0 {
		verses = DefaultVersesPerReading
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DailyAnalysisScheduler{
		analyses: analyses,
		cfg:      cfg,
		verses:   verses,
		loc:      loc,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins waiting for the next scheduled run
func (s *DailyAnalysisScheduler) Start() {
	logger.Log.Info("Starting daily analysis scheduler",
		zap.Int("hour", s.cfg.AnalysisHour),
		zap.Int("verses", s.verses),
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop cancels the scheduler and waits for a run in progress
func (s *DailyAnalysisScheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Log.Info("Daily analysis scheduler stopped")
}

func (s *DailyAnalysisScheduler) run() {
	for {
		next := s.cfg.AnalysisRunAt(s.now().In(s.loc))
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunNow(s.ctx); err != nil && s.ctx.Err() == nil {
				logger.Log.Error("Daily analysis run failed", zap.Error(err))
			}
		}
	}
}

// RunNow prepares today's analyses immediately
func (s *DailyAnalysisScheduler) RunNow(ctx context.Context) (*RunResult, error) {
	return s.RunForDay(ctx, bible.DayForDate(s.now().In(s.loc)))
}

// RunForDay prepares the first verses of every reading of a plan day.
// Verses that already have an analysis are skipped.
func (s *DailyAnalysisScheduler) RunForDay(ctx context.Context, day int) (*RunResult, error) {
	readings, err := bible.ReadingsForDay(day)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.GetBusinessEvents().TraceSchedulerRun(ctx, "daily_analysis", day)
	defer span.End()
	start := time.Now()

	var created, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readingConcurrency)

	for _, r := range readings {
		g.Go(func() error {
			first, last := s.verseRange(r)
			for v := first; v <= last; v++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				made, err := s.analyses.EnsureVerse(gctx, r.Book, r.Chapter, v, models.AnalysisSourceScheduler)
				if err != nil {
					return fmt.Errorf("%s %d:%d: %w", r.Book, r.Chapter, v, err)
				}
				if made {
					created.Add(1)
				} else {
					skipped.Add(1)
				}
			}
			return nil
		})
	}

	result := &RunResult{Day: day}
	err = g.Wait()
	result.Created = int(created.Load())
	result.Skipped = int(skipped.Load())
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return result, err
	}

	logger.Log.Info("Daily analyses prepared",
		zap.Int("day", day),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		logger.WithDuration(time.Since(start)),
	)
	return result, nil
}

// verseRange limits a reading's verses to the configured count
func (s *DailyAnalysisScheduler) verseRange(r bible.Reading) (int, int) {
	first := 1
	if r.VerseStart != nil {
		first = *r.VerseStart
	}
	last := first + s.verses - 1
	if r.VerseEnd != nil && *r.VerseEnd < last {
		last = *r.VerseEnd
	}
	return first, last
}

func seoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.UTC
}
