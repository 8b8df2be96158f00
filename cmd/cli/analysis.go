package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	analysisType   string
	analysisHebrew string
	saveDate       string
	saveReading    int
	savedLimit     int
)

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Passage, verse and chapter analysis",
}

var analysisPassageCmd = &cobra.Command{
	Use:   "passage <reference...>",
	Short: "Analyze a passage",
	Example: `  macchain analysis passage Genesis 1:1-5
  macchain analysis passage --type devotional Psalm 23`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAnalysisService(session).Passage(cmd.Context(), strings.Join(args, " "), analysisType, saveTarget())
	},
}

var analysisVerseCmd = &cobra.Command{
	Use:   "verse <book> <chapter> <verse>",
	Short: "Word-by-word analysis of a verse",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapter, verse, err := atoi2(args[1], args[2])
		if err != nil {
			return err
		}
		return service.NewAnalysisService(session).Verse(cmd.Context(), args[0], chapter, verse, analysisHebrew, saveTarget())
	},
}

var analysisChapterCmd = &cobra.Command{
	Use:   "chapter <book> <chapter>",
	Short: "Analysis of a whole chapter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapter, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("chapter must be a number: %w", err)
		}
		return service.NewAnalysisService(session).Chapter(cmd.Context(), args[0], chapter, saveTarget())
	},
}

var analysisSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAnalysisService(session).Saved(cmd.Context(), savedLimit)
	},
}

func saveTarget() service.SaveTarget {
	return service.SaveTarget{PlanDate: saveDate, ReadingID: saveReading}
}

func atoi2(a, b string) (int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a number", a)
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a number", b)
	}
	return x, y, nil
}

func init() {
	analysisPassageCmd.Flags().StringVar(&analysisType, "type", "general", "Analysis type: general, theological, devotional, historical")
	analysisVerseCmd.Flags().StringVar(&analysisHebrew, "hebrew", "", "Original-language text of the verse")
	for _, c := range []*cobra.Command{analysisPassageCmd, analysisVerseCmd, analysisChapterCmd} {
		c.Flags().StringVar(&saveDate, "save-date", "", "Save the result to this plan date (YYYY-MM-DD)")
		c.Flags().IntVar(&saveReading, "save-reading", 0, "Save the result to this reading id")
	}
	analysisSavedCmd.Flags().IntVar(&savedLimit, "limit", 20, "Maximum results")

	analysisCmd.AddCommand(analysisPassageCmd)
	analysisCmd.AddCommand(analysisVerseCmd)
	analysisCmd.AddCommand(analysisChapterCmd)
	analysisCmd.AddCommand(analysisSavedCmd)
}
