package checklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 50

// Report prints a human-readable trace of a run as it happens. Colors are
// applied only when w is a terminal.
type Report struct {
	w       io.Writer
	verbose bool

	ok   lipgloss.Style
	fail lipgloss.Style
	skip lipgloss.Style
	dim  lipgloss.Style
	bold lipgloss.Style
}

// NewReport returns a Report writing to w. With verbose set, skipped steps
// after an abort and step timings are printed too.
func NewReport(w io.Writer, verbose bool) *Report {
	re := lipgloss.NewRenderer(w)
	return &Report{
		w:       w,
		verbose: verbose,
		ok:      re.NewStyle().Foreground(lipgloss.Color("2")),
		fail:    re.NewStyle().Foreground(lipgloss.Color("1")),
		skip:    re.NewStyle().Foreground(lipgloss.Color("3")),
		dim:     re.NewStyle().Faint(true),
		bold:    re.NewStyle().Bold(true),
	}
}

// Begin prints the checklist banner.
func (r *Report) Begin(c *Checklist) {
	title := c.Description
	if title == "" {
		title = c.Name
	}
	fmt.Fprintln(r.w, r.bold.Render("🧪 Testing "+title))
	fmt.Fprintln(r.w, strings.Repeat("=", ruleWidth))
}

// StepStarted prints the numbered step heading.
func (r *Report) StepStarted(n int, s *Step) {
	fmt.Fprintf(r.w, "\n%d. %s...\n", n, s.Name)
}

// StepFinished prints the step outcome and its detail lines.
func (r *Report) StepFinished(_ int, sr *StepResult) {
	switch sr.Status {
	case StatusPassed:
		fmt.Fprintln(r.w, r.ok.Render("✅ "+sr.Summary))
		for _, d := range sr.Details {
			fmt.Fprintln(r.w, "   - "+d)
		}
	case StatusFailed:
		fmt.Fprintln(r.w, r.fail.Render(fmt.Sprintf("❌ %s failed: %s", sr.Name, sr.Error)))
		if sr.Fatal {
			fmt.Fprintln(r.w, r.dim.Render("   (fatal, stopping)"))
		}
	case StatusSkipped:
		fmt.Fprintln(r.w, r.skip.Render("⏭️  Skipped: "+sr.Reason))
	}
	if r.verbose {
		fmt.Fprintln(r.w, r.dim.Render(fmt.Sprintf("   [%s in %s]", sr.Action, sr.Duration.Round(time.Millisecond))))
	}
}

// End prints the closing line with step counts.
func (r *Report) End(res *Result) {
	if r.verbose {
		for _, sr := range res.Steps {
			if sr.Status == StatusSkipped && sr.Reason != "" && strings.HasPrefix(sr.Reason, "not run") {
				fmt.Fprintln(r.w, r.skip.Render(fmt.Sprintf("⏭️  %s: %s", sr.Name, sr.Reason)))
			}
		}
	}

	passed, failed, skipped := res.Counts()
	counts := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped)

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, strings.Repeat("=", ruleWidth))
	switch {
	case res.Passed:
		fmt.Fprintln(r.w, r.ok.Render(fmt.Sprintf("🎉 %s complete! (%s)", res.Checklist, counts)))
	case res.Aborted:
		fmt.Fprintln(r.w, r.fail.Render(fmt.Sprintf("💥 %s aborted (%s)", res.Checklist, counts)))
	default:
		fmt.Fprintln(r.w, r.fail.Render(fmt.Sprintf("⚠️  %s finished with failures (%s)", res.Checklist, counts)))
	}
}
