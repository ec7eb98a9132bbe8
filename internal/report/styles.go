package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sgeisler/testinator/internal/constants"
)

//nolint:gochecknoglobals // Semantic palette shared by all summary styles
var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}
	colorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}
	colorHeader  = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
)

// Styles holds the summary styles bound to one output.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles creates styles rendering to w. When colored is false every style
// renders plain text.
func NewStyles(w io.Writer, colored bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if !colored {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Header:  r.NewStyle().Bold(true).Foreground(colorHeader),
		Success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		Error:   r.NewStyle().Foreground(colorError).Bold(true),
		Warning: r.NewStyle().Foreground(colorWarning),
		Dim:     r.NewStyle().Foreground(colorMuted),
	}
}

// ColorEnabled reports whether styled output should be written to w: w must
// be a terminal, NO_COLOR must be unset and TERM must not be "dumb".
func ColorEnabled(w io.Writer) bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// Label returns the human-readable, title-cased name of an outcome kind,
// e.g. "Setup Failed".
func Label(kind constants.OutcomeKind) string {
	return title(strings.ReplaceAll(kind.String(), "_", " "))
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// Icon returns the status glyph for an outcome kind.
func Icon(kind constants.OutcomeKind) string {
	if kind == constants.OutcomeSuccess {
		return "✓"
	}
	return "✗"
}
