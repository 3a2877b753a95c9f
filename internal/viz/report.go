package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendsim/internal/harness"
)

// RenderReport formats a comparison summary. At most maxFlags flagged steps
// are listed; a negative maxFlags lists all of them.
func RenderReport(rep *harness.Report, maxFlags int) string {
	var s strings.Builder

	s.WriteString(Title().Render(fmt.Sprintf("%s comparison", strings.ToUpper(string(rep.Mode)))) + "\n")
	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + Value().Render(value) + "\n")
	}

	row("trajectories", fmt.Sprintf("%d", rep.Trajectories))
	row("time steps", fmt.Sprintf("%d", rep.Steps))
	row("epsilon", fmt.Sprintf("%.6g", rep.Epsilon))
	row("state diff", fmt.Sprintf("%.6g", rep.TotalStateDiff))
	row("cost diff", fmt.Sprintf("%.6g", rep.TotalCostDiff))
	row("state max", fmt.Sprintf("%.6g", rep.StateSummary.Max))
	row("cost max", fmt.Sprintf("%.6g", rep.CostSummary.Max))
	row("state flags", fmt.Sprintf("%d", rep.StateFlags))
	row("cost flags", fmt.Sprintf("%d", rep.CostFlags))
	if rep.ShapeMismatches > 0 {
		row("shape errors", fmt.Sprintf("%d", rep.ShapeMismatches))
	}
	s.WriteString(MetricLabel.Render("verdict") + Verdict(rep.Clean()) + "\n")

	if len(rep.Flagged) > 0 && maxFlags != 0 {
		s.WriteString("\n")
		for i, r := range rep.Flagged {
			if maxFlags > 0 && i == maxFlags {
				s.WriteString(Subtle().Render(fmt.Sprintf("... %d more", len(rep.Flagged)-maxFlags)) + "\n")
				break
			}
			s.WriteString(RenderFlag(r) + "\n")
		}
	}

	return Panel.Render(strings.TrimRight(s.String(), "\n"))
}

// RenderFlag describes a flagged step: both next states and both costs.
func RenderFlag(r harness.StepResult) string {
	var parts []string
	if r.ShapeMismatch {
		parts = append(parts, fmt.Sprintf("shape: reference has %d entries", len(r.RefNext)))
	}
	if r.StateFlag {
		parts = append(parts, fmt.Sprintf("state %s vs %s",
			ReferenceStyle().Render(formatVec(r.RefNext)),
			ModelStyle().Render(formatVec(r.ModelNext.Float64()))))
	}
	if r.CostFlag {
		parts = append(parts, fmt.Sprintf("reward %s vs cost %s",
			ReferenceStyle().Render(fmt.Sprintf("%.6g", r.Reward)),
			ModelStyle().Render(fmt.Sprintf("%.6g", r.Cost))))
	}
	head := FlagStyle().Render(fmt.Sprintf("traj %d step %d u=%.4f", r.Trajectory, r.Step, r.Control))
	return head + "  " + strings.Join(parts, "; ")
}

// RenderStep is the one-line trace printed for every step in verbose mode.
func RenderStep(r harness.StepResult) string {
	line := fmt.Sprintf("traj %d step %4d  state_diff %.6e  cost_diff %.6e", r.Trajectory, r.Step, r.StateDiff, r.CostDiff)
	if r.Flagged() {
		return FlagStyle().Render(line + "  !")
	}
	return Subtle().Render(line)
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Plot draws one or more series on a shared axis. Empty series are skipped;
// if none remain the result is empty.
func Plot(caption string, height, width int, series ...[]float64) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return ""
	}

	colors := []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(data), len(colors))]...),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return graphStyle.Render(asciigraph.PlotMany(data, opts...))
}

// Legend labels the reference and model colors.
func Legend() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		ReferenceStyle().Render("● reference"), "  ",
		ModelStyle().Render("● model"))
}
