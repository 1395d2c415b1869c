package cli

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type outputStyles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Accent  lipgloss.Style
}

var (
	stylesOnce   sync.Once
	cachedStyles outputStyles
)

func styles() outputStyles {
	stylesOnce.Do(func() {
		cachedStyles = buildStyles(colorEnabled())
	})
	return cachedStyles
}

func buildStyles(color bool) outputStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return outputStyles{
			Title:   plain,
			Header:  plain,
			Muted:   plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
			Accent:  plain,
		}
	}
	return outputStyles{
		Title:   lipgloss.NewStyle().Bold(true),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

func colorEnabled() bool {
	if noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func hasTTY() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
