package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/usecase"
)

const maxTitleWidth = 60

var (
	accentColor = lipgloss.Color("#2DA44E")
	errorColor  = lipgloss.Color("#CF222E")
	dimColor    = lipgloss.Color("#6E7681")
	headerColor = lipgloss.Color("#0969DA")

	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dimColor)
)

func renderReport(r usecase.TriageReport) string {
	return fmt.Sprintf("%s fetched %d, relevant %d, unique %d, ranked %d",
		headerStyle.Render("triage:"), r.Fetched, r.Relevant, r.Unique, len(r.Ranked))
}

func renderCandidates(items []domain.RankedItem, limit int) string {
	if len(items) == 0 {
		return dimStyle.Render("no candidates")
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "SCORE", "SOURCE", "TITLE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for i, item := range items {
		source := item.Item.Site
		if source == "" {
			source = string(item.Item.Source)
		}
		t.Row(fmt.Sprint(i+1), fmt.Sprintf("%.3f", item.Score), source, truncate(item.Item.Title, maxTitleWidth))
	}
	return t.Render()
}

func renderAnalyses(results []domain.Analysis) string {
	if len(results) == 0 {
		return dimStyle.Render("no analyses")
	}

	var b strings.Builder
	for i, a := range results {
		status := successStyle.Render("ok")
		if !a.OverallSuccess {
			status = errorStyle.Render("failed")
		}
		fmt.Fprintf(&b, "%d. %s [%s] %d/%d stages\n", i+1, a.Item.Title, status,
			len(a.CompletedStages), len(a.Results))
		for _, f := range a.FailedStages {
			fmt.Fprintf(&b, "   %s %s\n", dimStyle.Render(f.Stage+":"), f.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
