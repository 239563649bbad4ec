// Package status renders run progress for the terminal.
package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/wns-cli/internal/application"
	"github.com/bnema/wns-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(status application.RunStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Wrap 'n' Shake"),
		s.header.Render(fmt.Sprintf("run: %s", status.RunID)),
		"",
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.stage.Render(stageLabel(status)),
			" ",
			renderProgressBar(stageFraction(status), 28, s),
			" ",
			s.detail.Render(fmt.Sprintf("%3.0f%%", stageFraction(status)*100)),
		),
	}

	lines = append(lines, s.detail.Render(counterLine(status)))
	lines = append(lines, s.detail.Render(fmt.Sprintf("checkpoints: %d", status.Records)))

	if status.Failure != "" {
		lines = append(lines, s.warning.Render("failure: "+status.Failure))
	}
	if status.Completed {
		lines = append(lines, s.done.Render("run complete"))
	}

	updated := s.empty.Render("last update: " + formatUpdated(status.LastUpdate, opts.Now))
	if isStale(status.LastUpdate, opts) && !status.Completed {
		updated += " " + s.warning.Render("[stale]")
	}
	lines = append(lines, updated)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stageLabel(status application.RunStatus) string {
	switch domain.PipelineStage(status.Stage) {
	case domain.StageWrapper:
		if status.Phase == domain.PhaseWrapperDone {
			return "wrapper done"
		}
		return "wrapping"
	case domain.StageShaker:
		switch status.Phase {
		case domain.PhasePreMD:
			return "equilibrating"
		case domain.PhaseFinalMD, domain.PhaseShakerDone:
			return "final simulation"
		default:
			return "shaking"
		}
	case domain.StageSurvivors:
		return "survivors selected"
	default:
		return status.Stage
	}
}

// stageFraction maps the recorded phase onto coarse overall progress. The
// exact iteration and cycle counts are open-ended, so the bar only promises
// ordering, not linear time.
func stageFraction(status application.RunStatus) float64 {
	switch status.Phase {
	case domain.PhaseIteration:
		return 0.15
	case domain.PhaseWrapperDone:
		return 0.35
	case domain.PhasePreMD:
		return 0.45
	case domain.PhaseCycle:
		return 0.65
	case domain.PhaseFinalMD, domain.PhaseShakerDone:
		return 0.90
	case domain.PhaseSurvivors:
		return 1.0
	default:
		return 0
	}
}

func counterLine(status application.RunStatus) string {
	switch domain.PipelineStage(status.Stage) {
	case domain.StageWrapper:
		return fmt.Sprintf("iteration: %d", status.Iteration)
	case domain.StageShaker:
		return fmt.Sprintf("cycle: %d", status.Cycle)
	default:
		return fmt.Sprintf("cycles run: %d", status.Cycle)
	}
}

func renderProgressBar(fraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(math.Round(float64(width) * fraction))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatUpdated(updated, now time.Time) string {
	if updated.IsZero() {
		return "never"
	}
	if now.IsZero() {
		return updated.Format(time.RFC3339)
	}

	elapsed := now.Sub(updated)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return updated.Format("15:04 on 02 Jan")
	}
}

func isStale(updated time.Time, opts RenderOptions) bool {
	if opts.Now.IsZero() || opts.StaleAfter <= 0 || updated.IsZero() {
		return false
	}
	return opts.Now.Sub(updated) > opts.StaleAfter
}
