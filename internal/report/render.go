package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/errors"
)

// Format selects how the final summary is rendered.
type Format string

// Supported summary formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidOutputFormat, "%q (want text or json)", s)
	}
}

// Render writes r to w in the given format. Text output is styled only
// when ColorEnabled(w).
func Render(w io.Writer, r *RunReport, format Format) error {
	switch format {
	case FormatJSON:
		return RenderJSON(w, r)
	case FormatText, "":
		return RenderText(w, r, NewStyles(w, ColorEnabled(w)))
	default:
		return errors.Wrapf(errors.ErrInvalidOutputFormat, "%q", string(format))
	}
}

// RenderJSON writes r as indented JSON.
func RenderJSON(w io.Writer, r *RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "encode report")
}

// RenderText writes the human-readable summary.
func RenderText(w io.Writer, r *RunReport, s *Styles) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", s.Header.Render("Test matrix summary"), s.Dim.Render(fmt.Sprintf("run %s, %s", r.RunID, roundDuration(r.Duration))))

	names := []string{title("version"), title("passed"), title("failed"), title("setup failed")}
	rows := make([][]string, 0, len(r.Versions))
	for _, v := range r.Versions {
		rows = append(rows, []string{v.Version, strconv.Itoa(v.Passed), strconv.Itoa(v.Failed), strconv.Itoa(v.SetupFailed)})
	}
	t := newTable(&b, s.Header, names, rows)
	t.writeHeader()
	for _, row := range rows {
		t.writeRow(row...)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.Header.Render("Failures"))
		for _, f := range r.Failures {
			detail := Label(f.Outcome.Kind)
			switch f.Outcome.Kind {
			case constants.OutcomeFailure:
				detail += fmt.Sprintf(" (exit %d, %s)", f.Outcome.ExitCode, roundDuration(f.Outcome.Duration))
			case constants.OutcomeSetupFailed:
				detail += " (" + firstLine(f.Outcome.Reason) + ")"
			}
			fmt.Fprintf(&b, "  %s %s %s: %s\n", s.Error.Render(Icon(f.Outcome.Kind)), f.Job.Version, f.Job.Combination, detail)
		}
	}

	if len(r.Fuzz) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.Header.Render("Fuzzing"))
		for _, f := range r.Fuzz {
			icon := s.Error.Render(Icon(f.Outcome.Kind))
			if f.Outcome.IsSuccess() {
				icon = s.Success.Render(Icon(f.Outcome.Kind))
			}
			detail := Label(f.Outcome.Kind)
			switch f.Outcome.Kind {
			case constants.OutcomeCrash:
				detail += fmt.Sprintf(" (exit %d)", f.Outcome.ExitCode)
			case constants.OutcomeSetupFailed:
				detail += " (" + firstLine(f.Outcome.Reason) + ")"
			}
			target := f.Job.Target
			if target == "" {
				target = "(setup)"
			}
			fmt.Fprintf(&b, "  %s %s on %s: %s\n", icon, target, f.Job.Version, detail)
		}
	}

	totals := r.Totals()
	summary := fmt.Sprintf("%d passed, %d failed, %d setup failed", totals.Passed, totals.Failed, totals.SetupFailed)
	if r.NotRun > 0 {
		summary += fmt.Sprintf(", %d not run", r.NotRun)
	}
	b.WriteString("\n")
	switch {
	case r.Interrupted:
		fmt.Fprintf(&b, "%s %s\n", s.Warning.Render("⚠ Interrupted:"), summary)
	case r.Success():
		fmt.Fprintf(&b, "%s %s\n", s.Success.Render("✓ All jobs passed:"), summary)
	default:
		fmt.Fprintf(&b, "%s %s\n", s.Error.Render("✗ Matrix failed:"), summary)
	}

	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write summary")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func roundDuration(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}
