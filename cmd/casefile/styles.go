package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/models"
)

// styles renders for one writer so that colors are dropped when it is not a terminal.
type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	warning lipgloss.Style
	errorS  lipgloss.Style
	success lipgloss.Style
	block   lipgloss.Style
	answer  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F780FF")),
		label:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		errorS:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555")),
		success: r.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		block: r.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8")),
		answer: r.NewStyle().PaddingLeft(2), //nolint:mnd // indent answers under the NPC name
	}
}

func (s styles) field(label, value string) string {
	return s.label.Render(label+":") + " " + value
}

func (s styles) renderCase(generated *models.GeneratedCase) string {
	c := generated.Case
	var b strings.Builder
	b.WriteString(s.header.Render(c.Crime) + " " + s.dim.Render("("+c.CaseID+")") + "\n")
	b.WriteString(s.field("Theme", generated.Theme) + "\n")
	b.WriteString(s.field("Victim", c.Victim) + "\n")
	b.WriteString(s.field("Location", c.Location) + "\n")
	if generated.Briefing != "" {
		b.WriteString("\n" + s.block.Render(generated.Briefing) + "\n")
	}

	b.WriteString("\n" + s.header.Render("Suspects") + "\n")
	for _, npc := range c.NPCs {
		b.WriteString(fmt.Sprintf("%s %s, %s %s\n", s.label.Render(npc.Name), s.dim.Render("["+npc.ID+"]"),
			npc.Role, s.dim.Render("("+npc.Personality+")")))
		b.WriteString(s.answer.Render(s.field("Motive", npc.Motive)) + "\n")
		b.WriteString(s.answer.Render(s.field("Alibi", npc.Alibi)) + "\n")
	}

	b.WriteString("\n" + s.header.Render("Clues") + "\n")
	for _, clue := range c.Clues {
		b.WriteString(fmt.Sprintf("%s %s %s\n", s.dim.Render("["+clue.ID+"]"), clue.Description,
			s.dim.Render("at "+clue.LocationHint)))
		if len(clue.RelatesTo) > 0 {
			b.WriteString(s.answer.Render(s.field("Relates to", strings.Join(clue.RelatesTo, ", "))) + "\n")
		}
	}

	if generated.Review != nil {
		verdict := s.success.Render("consistent")
		if !generated.Review.Consistent {
			verdict = s.warning.Render("inconsistent")
		}
		b.WriteString("\n" + s.field("Review", verdict))
		if generated.Review.Notes != "" {
			b.WriteString(" " + s.dim.Render(generated.Review.Notes))
		}
		b.WriteString("\n")
	}
	for _, failure := range generated.StageFailures {
		b.WriteString(s.warning.Render("stage failed: "+failure) + "\n")
	}
	b.WriteString(s.renderReferenceIssues(generated.ReferenceIssues))
	return b.String()
}

func (s styles) renderReferenceIssues(issues []models.ReferenceIssue) string {
	var b strings.Builder
	for _, issue := range issues {
		b.WriteString(s.warning.Render(fmt.Sprintf("warning: %s %s references %q", issue.Kind, issue.SubjectID,
			issue.Reference)) + "\n")
	}
	return b.String()
}

func (s styles) renderIssues(issues []models.Issue) string {
	var b strings.Builder
	b.WriteString(s.errorS.Render("invalid case") + "\n")
	for _, issue := range issues {
		b.WriteString(s.block.Render(issue.String()) + "\n")
	}
	return b.String()
}

func (s styles) renderSummaries(summaries []models.CaseSummary) string {
	if len(summaries) == 0 {
		return s.dim.Render("no cases yet, create one with casefile generate") + "\n"
	}
	var b strings.Builder
	for _, summary := range summaries {
		b.WriteString(fmt.Sprintf("%s %s %s\n", s.label.Render(summary.CaseID), summary.Crime,
			s.dim.Render(summary.Created.Local().Format("2006-01-02 15:04")+" "+summary.Theme)))
	}
	return b.String()
}

func (s styles) renderModels(registry ai.Registry) string {
	var b strings.Builder
	for _, m := range registry.Models() {
		b.WriteString(fmt.Sprintf("%s %s/%s %s\n", s.label.Render(fmt.Sprintf("%-8s", m.Name)), m.Provider, m.Model,
			s.dim.Render(fmt.Sprintf("temperature %.2f", m.Temperature))))
	}
	return b.String()
}
