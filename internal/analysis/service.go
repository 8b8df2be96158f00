package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Passage analysis types
const (
	TypeGeneral     = "general"
	TypeTheological = "theological"
	TypeDevotional  = "devotional"
	TypeHistorical  = "historical"

	// TypeVerse marks stored original-language verse analyses
	TypeVerse = "verse"
)

// MaxVerse is the longest chapter in the canon (Psalm 119)
const MaxVerse = 176

const (
	defaultSavedLimit = 10
	maxSavedLimit     = 50
)

var ErrNotFound = errors.New("analysis not found")

// ValidationError reports an invalid request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidType reports whether t is a passage analysis type
func IsValidType(t string) bool {
	switch t {
	case TypeGeneral, TypeTheological, TypeDevotional, TypeHistorical:
		return true
	}
	return false
}

// Generator produces analysis text
type Generator interface {
	Passage(ctx context.Context, passage, analysisType string) (string, error)
	Verse(ctx context.Context, book string, chapter, verse int, hebrewText string) (*VerseAnalysis, error)
	Source() string
}

// Notifier queues a notification for a user
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType string, data map[string]interface{}) error
}

// WordAnalysis explains one word of the original text
type WordAnalysis struct {
	Original        string `json:"original"`
	Transliteration string `json:"transliteration"`
	Meaning         string `json:"meaning"`
	Grammar         string `json:"grammar"`
	Significance    string `json:"significance"`
}

// VerseAnalysis is the original-language study of one verse
type VerseAnalysis struct {
	Book                 string         `json:"book"`
	Chapter              int            `json:"chapter"`
	Verse                int            `json:"verse"`
	HebrewText           string         `json:"hebrew_text"`
	WordAnalysis         []WordAnalysis `json:"word_analysis"`
	OverallMeaning       string         `json:"overall_meaning"`
	CulturalBackground   string         `json:"cultural_background"`
	PracticalApplication string         `json:"practical_application"`
	KeyWords             []string       `json:"key_words"`
}

// AnalyzeRequest asks for a passage analysis
type AnalyzeRequest struct {
	Passage      string `json:"passage"`
	AnalysisType string `json:"analysis_type"`
}

// PassageAnalysis is the result of Analyze
type PassageAnalysis struct {
	ID           string    `json:"id"`
	Passage      string    `json:"passage"`
	AnalysisType string    `json:"analysis_type"`
	Analysis     string    `json:"analysis"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}

// SaveRequest stores an analysis a user wants to keep
type SaveRequest struct {
	PlanDate     string          `json:"plan_date"`
	ReadingID    int             `json:"reading_id"`
	AnalysisType string          `json:"analysis_type"`
	Data         json.RawMessage `json:"data"`
}

// SavedAnalysis is one row of ListSaved
type SavedAnalysis struct {
	ID           string          `json:"id"`
	PlanDate     string          `json:"plan_date"`
	ReadingID    int             `json:"reading_id"`
	AnalysisType string          `json:"analysis_type"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Service generates, stores and lists analyses
type Service struct {
	db        *gorm.DB
	generator Generator
	fallback  Mock
	notifier  Notifier
	now       func() time.Time
}

// NewService wires the analysis service. A nil generator uses the mock
// templates; notifier may be nil.
func NewService(db *gorm.DB, generator Generator, notifier Notifier) *Service {
	if generator == nil {
		generator = Mock{}
	}
	return &Service{db: db, generator: generator, notifier: notifier, now: time.Now}
}

// Source names the configured generator
func (s *Service) Source() string {
	return s.generator.Source()
}

// Analyze generates and stores an analysis of a free-form passage
func (s *Service) Analyze(ctx context.Context, userID string, req AnalyzeRequest) (*PassageAnalysis, error) {
	passage := strings.TrimSpace(req.Passage)
	if passage == "" {
		return nil, invalid("passage", "passage is required")
	}
	if req.AnalysisType == "" {
		req.AnalysisType = TypeGeneral
	}
	if !IsValidType(req.AnalysisType) {
		return nil, invalid("analysis_type", "analysis_type must be general, theological, devotional or historical")
	}

	ctx, span := telemetry.GetBusinessEvents().TraceAnalysisGenerated(ctx, req.AnalysisType, s.generator.Source())
	defer span.End()

	start := time.Now()
	source := s.generator.Source()
	text, err := s.generator.Passage(ctx, passage, req.AnalysisType)
	if err != nil {
		logger.Log.Warn("Analysis generator failed, using templates", zap.String("source", source), zap.Error(err))
		source = models.AnalysisSourceMock
		text, _ = s.fallback.Passage(ctx, passage, req.AnalysisType)
	}
	observe(req.AnalysisType, source, start)

	row := models.AIAnalysis{
		AnalysisType: req.AnalysisType,
		Passage:      passage,
		Content:      text,
		Source:       source,
	}
	if userID != "" {
		row.UserID = &userID
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	if source == models.AnalysisSourceRemote {
		s.notifyReady(ctx, userID, row.ID, passage)
	}

	return &PassageAnalysis{
		ID:           row.ID,
		Passage:      passage,
		AnalysisType: req.AnalysisType,
		Analysis:     text,
		Source:       source,
		Timestamp:    s.now().UTC(),
	}, nil
}

// Get returns a stored passage analysis
func (s *Service) Get(ctx context.Context, id string) (*PassageAnalysis, error) {
	var row models.AIAnalysis
	err := s.db.WithContext(ctx).Where("analysis_type <> ?", TypeVerse).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return &PassageAnalysis{
		ID:           row.ID,
		Passage:      row.Passage,
		AnalysisType: row.AnalysisType,
		Analysis:     row.Content,
		Source:       row.Source,
		Timestamp:    row.CreatedAt.UTC(),
	}, nil
}

func (s *Service) notifyReady(ctx context.Context, userID, analysisID, passage string) {
	if s.notifier == nil || userID == "" {
		return
	}
	err := s.notifier.Notify(ctx, userID, models.NotificationAIAnalysisReady, map[string]interface{}{
		"analysis_id": analysisID,
		"passage":     passage,
	})
	if err != nil {
		logger.Log.Warn("Failed to queue analysis notification", logger.WithUserID(userID), zap.Error(err))
	}
}

func validateVerse(book string, chapter, verse int) (bible.Book, error) {
	b, err := bible.ValidateChapter(book, chapter)
	if errors.Is(err, bible.ErrUnknownBook) {
		return b, invalid("book", err.Error())
	}
	if err != nil {
		return b, invalid("chapter", err.Error())
	}
	if verse < 1 || verse > MaxVerse {
		return b, invalid("verse", fmt.Sprintf("verse must be between 1 and %d", MaxVerse))
	}
	return b, nil
}

// AnalyzeVerse returns the stored analysis of a verse, generating and
// storing one the first time it is asked for.
func (s *Service) AnalyzeVerse(ctx context.Context, book string, chapter, verse int, hebrewText string) (*VerseAnalysis, error) {
	b, err := validateVerse(book, chapter, verse)
	if err != nil {
		return nil, err
	}

	stored, err := s.storedVerse(ctx, b.Name, chapter, verse)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if hebrewText != "" {
			stored.HebrewText = hebrewText
		}
		return stored, nil
	}

	va, _, err := s.generateVerse(ctx, b.Name, chapter, verse, hebrewText, "")
	return va, err
}

// AnalyzeChapter analyzes a chapter through its first verse
func (s *Service) AnalyzeChapter(ctx context.Context, book string, chapter int) (*VerseAnalysis, error) {
	return s.AnalyzeVerse(ctx, book, chapter, 1, "")
}

// EnsureVerse generates a verse analysis unless one is already stored.
// It reports whether a new analysis was created.
func (s *Service) EnsureVerse(ctx context.Context, book string, chapter, verse int, source string) (bool, error) {
	b, err := validateVerse(book, chapter, verse)
	if err != nil {
		return false, err
	}
	exists, err := s.HasVerse(ctx, b.Name, chapter, verse)
	if err != nil || exists {
		return false, err
	}
	_, created, err := s.generateVerse(ctx, b.Name, chapter, verse, "", source)
	return created, err
}

// HasVerse reports whether a verse analysis is stored
func (s *Service) HasVerse(ctx context.Context, book string, chapter, verse int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.AIAnalysis{}).
		Where("analysis_type = ? AND book = ? AND chapter = ? AND verse = ?", TypeVerse, book, chapter, verse).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check verse analysis: %w", err)
	}
	return n > 0, nil
}

func (s *Service) storedVerse(ctx context.Context, book string, chapter, verse int) (*VerseAnalysis, error) {
	var row models.AIAnalysis
	err := s.db.WithContext(ctx).
		Where("analysis_type = ? AND book = ? AND chapter = ? AND verse = ?", TypeVerse, book, chapter, verse).
		Order("created_at").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verse analysis: %w", err)
	}

	var va VerseAnalysis
	if err := json.Unmarshal([]byte(row.Content), &va); err != nil {
		logger.Log.Warn("Discarding unreadable verse analysis", zap.String("analysis_id", row.ID), zap.Error(err))
		return nil, nil
	}
	return &va, nil
}

// generateVerse builds and stores a verse analysis. An empty source records
// the generator that produced it.
func (s *Service) generateVerse(ctx context.Context, book string, chapter, verse int, hebrewText, source string) (*VerseAnalysis, bool, error) {
	genSource := s.generator.Source()
	ctx, span := telemetry.GetBusinessEvents().TraceAnalysisGenerated(ctx, TypeVerse, genSource)
	defer span.End()

	start := time.Now()
	va, err := s.generator.Verse(ctx, book, chapter, verse, hebrewText)
	if err != nil {
		logger.Log.Warn("Verse generator failed, using templates", zap.String("source", genSource), zap.Error(err))
		genSource = models.AnalysisSourceMock
		va, _ = s.fallback.Verse(ctx, book, chapter, verse, hebrewText)
	}
	if source == "" {
		source = genSource
	}
	observe(TypeVerse, source, start)

	content, err := json.Marshal(va)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode verse analysis: %w", err)
	}
	row := models.AIAnalysis{
		Book:         book,
		Chapter:      chapter,
		Verse:        verse,
		AnalysisType: TypeVerse,
		Passage:      fmt.Sprintf("%s %d:%d", book, chapter, verse),
		Content:      string(content),
		Source:       source,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, false, fmt.Errorf("failed to store verse analysis: %w", err)
	}
	return va, true, nil
}

func observe(analysisType, source string, start time.Time) {
	m := metrics.Get()
	m.AnalysesGeneratedTotal.WithLabelValues(analysisType, source).Inc()
	m.AnalysisDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// Save stores an analysis the user wants to keep
func (s *Service) Save(ctx context.Context, userID string, req SaveRequest) (*SavedAnalysis, error) {
	if _, err := bible.ParseDate(req.PlanDate); err != nil {
		return nil, invalid("plan_date", "plan_date must be formatted as YYYY-MM-DD")
	}
	if req.ReadingID < 0 || req.ReadingID > bible.ReadingsPerDay {
		return nil, invalid("reading_id", fmt.Sprintf("reading_id must be between 1 and %d", bible.ReadingsPerDay))
	}
	if req.AnalysisType == "" {
		return nil, invalid("analysis_type", "analysis_type is required")
	}
	if len(req.Data) == 0 || !json.Valid(req.Data) {
		return nil, invalid("data", "data must be a JSON document")
	}

	row := models.AIAnalysis{
		UserID:       &userID,
		PlanDate:     req.PlanDate,
		ReadingID:    req.ReadingID,
		AnalysisType: req.AnalysisType,
		Content:      string(req.Data),
		Source:       models.AnalysisSourceUser,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	logger.Log.Debug("Analysis saved", logger.WithUserID(userID), logger.WithPlanDate(req.PlanDate))
	return toSaved(row), nil
}

// ListSaved returns the user's saved analyses, newest first
func (s *Service) ListSaved(ctx context.Context, userID string, limit int) ([]SavedAnalysis, error) {
	if limit <= 0 {
		limit = defaultSavedLimit
	}
	if limit > maxSavedLimit {
		limit = maxSavedLimit
	}

	var rows []models.AIAnalysis
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND source = ?", userID, models.AnalysisSourceUser).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved analyses: %w", err)
	}

	out := make([]SavedAnalysis, 0, len(rows))
	for _, r := range rows {
		out = append(out, *toSaved(r))
	}
	return out, nil
}

func toSaved(r models.AIAnalysis) *SavedAnalysis {
	return &SavedAnalysis{
		ID:           r.ID,
		PlanDate:     r.PlanDate,
		ReadingID:    r.ReadingID,
		AnalysisType: r.AnalysisType,
		Data:         json.RawMessage(r.Content),
		CreatedAt:    r.CreatedAt,
	}
}
