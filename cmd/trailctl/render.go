package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OCAP2/trail/internal/prefs"
	"github.com/OCAP2/trail/internal/storage"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F8C8D")).Width(10)
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true)
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true)
	headStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// swatch renders a block in color.
func swatch(color string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(color)).Render("    ")
}

func renderPrefs(w io.Writer, path string, p prefs.Prefs) {
	state := offStyle.Render("off")
	if p.Enabled {
		state = onStyle.Render("on")
	}
	color := p.Color
	if prefs.IsPreset(color) {
		color += faintStyle.Render(" (preset)")
	}

	lines := []string{
		labelStyle.Render("trails") + state,
		labelStyle.Render("color") + swatch(p.Color) + " " + color,
		labelStyle.Render("file") + faintStyle.Render(path),
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func renderPresets(w io.Writer, colors []string) {
	for _, c := range colors {
		fmt.Fprintln(w, swatch(c)+" "+c)
	}
}

func renderHistory(w io.Writer, trails []storage.TrailRecord) {
	if len(trails) == 0 {
		fmt.Fprintln(w, faintStyle.Render("No trails recorded."))
		return
	}

	cols := []lipgloss.Style{
		lipgloss.NewStyle().Width(20),
		lipgloss.NewStyle().Width(16),
		lipgloss.NewStyle().Width(14),
		lipgloss.NewStyle().Width(8).Align(lipgloss.Right),
		lipgloss.NewStyle().Width(10).Align(lipgloss.Right),
	}
	row := func(cells ...string) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = cols[i].Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	fmt.Fprintln(w, headStyle.Render(row("CREATED", "TOKEN", "COLOR", "POINTS", "LENGTH")))
	for _, t := range trails {
		fmt.Fprintln(w, row(
			t.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			t.TokenID,
			swatch(t.Color)+" "+t.Color,
			fmt.Sprintf("%d", len(t.Points)),
			fmt.Sprintf("%.1f", t.Length),
		))
	}
}
