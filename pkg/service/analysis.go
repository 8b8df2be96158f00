package service

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
)

// SaveTarget attaches an analysis to one of the user's readings
type SaveTarget struct {
	PlanDate  string
	ReadingID int
}

func (t SaveTarget) set() bool { return t.PlanDate != "" && t.ReadingID > 0 }

type AnalysisService struct {
	s *Session
}

func NewAnalysisService(s *Session) *AnalysisService {
	return &AnalysisService{s: s}
}

// Passage runs a text analysis of kind analysisType
func (a *AnalysisService) Passage(ctx context.Context, passage, analysisType string, save SaveTarget) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	res, err := a.s.API.AnalyzePassage(ctx, passage, analysisType)
	if err != nil {
		return err
	}
	if err := a.save(ctx, save, res.AnalysisType, res); err != nil {
		return err
	}
	if f := output.GetOutputFormat(); f == output.FormatJSON || f == output.FormatYAML {
		return output.Print("", res)
	}
	fmt.Fprintf(output.Writer(), "%s · %s (%s)\n\n%s\n", res.Passage, res.AnalysisType, res.Source, res.Analysis)
	return nil
}

// Verse runs the word-level analysis of one verse
func (a *AnalysisService) Verse(ctx context.Context, book string, chapter, verse int, hebrew string, save SaveTarget) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	res, err := a.s.API.AnalyzeVerse(ctx, book, chapter, verse, hebrew)
	if err != nil {
		return err
	}
	if err := a.save(ctx, save, "verse", res); err != nil {
		return err
	}
	return printVerseAnalysis(res)
}

// Chapter runs the analysis of a whole chapter
func (a *AnalysisService) Chapter(ctx context.Context, book string, chapter int, save SaveTarget) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	res, err := a.s.API.AnalyzeChapter(ctx, book, chapter)
	if err != nil {
		return err
	}
	if err := a.save(ctx, save, "chapter", res); err != nil {
		return err
	}
	return printVerseAnalysis(res)
}

// Saved lists the user's saved analyses
func (a *AnalysisService) Saved(ctx context.Context, limit int) error {
	if err := a.s.RequireAuth(); err != nil {
		return err
	}
	items, err := a.s.API.SavedAnalyses(ctx, limit)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ID, it.PlanDate, fmt.Sprintf("%d", it.ReadingID), it.AnalysisType, ago(it.CreatedAt)})
	}
	return output.PrintList("Saved analyses", items, []string{"ID", "DATE", "READING", "TYPE", "SAVED"}, rows)
}

func (a *AnalysisService) save(ctx context.Context, t SaveTarget, kind string, v interface{}) error {
	if !t.set() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	saved, err := a.s.API.SaveAnalysis(ctx, api.SaveAnalysisRequest{
		PlanDate:     t.PlanDate,
		ReadingID:    t.ReadingID,
		AnalysisType: kind,
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("analysis succeeded but saving failed: %w", err)
	}
	output.PrintInfo("Saved as %s", saved.ID)
	return nil
}

func printVerseAnalysis(v *api.VerseAnalysis) error {
	if f := output.GetOutputFormat(); f == output.FormatJSON || f == output.FormatYAML {
		return output.Print("", v)
	}
	title := fmt.Sprintf("%s %d", v.Book, v.Chapter)
	if v.Verse > 0 {
		title = fmt.Sprintf("%s:%d", title, v.Verse)
	}
	w := output.Writer()
	fmt.Fprintln(w, title)
	if v.HebrewText != "" {
		fmt.Fprintf(w, "\n%s\n", v.HebrewText)
	}
	if len(v.WordAnalysis) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(v.WordAnalysis))
		for _, wa := range v.WordAnalysis {
			rows = append(rows, []string{wa.Original, wa.Transliteration, wa.Meaning, wa.Grammar})
		}
		output.PrintTable([]string{"WORD", "TRANSLITERATION", "MEANING", "GRAMMAR"}, rows)
	}
	for _, sec := range []struct{ label, text string }{
		{"Meaning", v.OverallMeaning},
		{"Background", v.CulturalBackground},
		{"Application", v.PracticalApplication},
	} {
		if sec.text != "" {
			fmt.Fprintf(w, "\n%s\n  %s\n", sec.label, sec.text)
		}
	}
	return nil
}
