package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func keys(m PickerModel, ks ...string) (PickerModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range ks {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(PickerModel)
	}
	return m, cmd
}

func TestPickerModel(t *testing.T) {
	rows := [][]string{{"Launch", "T1"}, {"Webinar", "T2"}, {"Hiring", "T3"}}

	tests := []struct {
		name       string
		keys       []string
		disabled   map[int]bool
		wantCursor int
		wantPick   int
		wantQuit   bool
	}{
		{name: "initial", wantCursor: 0, wantPick: -1},
		{name: "down twice", keys: []string{"down", "j"}, wantCursor: 2, wantPick: -1},
		{name: "down clamps", keys: []string{"down", "down", "down", "down"}, wantCursor: 2, wantPick: -1},
		{name: "up clamps", keys: []string{"up", "k"}, wantCursor: 0, wantPick: -1},
		{name: "select", keys: []string{"down", "enter"}, wantCursor: 1, wantPick: 1, wantQuit: true},
		{name: "disabled row", keys: []string{"down", "enter"}, disabled: map[int]bool{1: true}, wantCursor: 1, wantPick: -1},
		{name: "quit", keys: []string{"q"}, wantCursor: 0, wantPick: -1, wantQuit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPickerModel("Select", []string{"Title", "ID"}, rows)
			m.Disabled = tt.disabled
			m, cmd := keys(m, tt.keys...)
			if m.Cursor != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", m.Cursor, tt.wantCursor)
			}
			if m.Selected != tt.wantPick {
				t.Errorf("selected = %d, want %d", m.Selected, tt.wantPick)
			}
			if (cmd != nil) != tt.wantQuit {
				t.Errorf("quit = %v, want %v", cmd != nil, tt.wantQuit)
			}
		})
	}
}

func TestPickerModelScrolls(t *testing.T) {
	var rows [][]string
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"row", "id"})
	}
	m := NewPickerModel("Select", []string{"Title", "ID"}, rows)
	next, _ := m.Update(tea.WindowSizeMsg{Height: 11})
	m = next.(PickerModel)
	if m.Height != 5 {
		t.Fatalf("height = %d, want 5", m.Height)
	}

	for i := 0; i < 7; i++ {
		m, _ = keys(m, "down")
	}
	if m.Offset != 3 {
		t.Errorf("offset = %d, want 3", m.Offset)
	}
	if !strings.Contains(m.View(), "[8/20]") {
		t.Errorf("view missing position:\n%s", m.View())
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		in   string
		want string
	}{
		{now.Add(-5 * time.Minute).Format(time.RFC3339), "5m ago"},
		{now.Add(-3 * time.Hour).Format(time.RFC3339), "3h ago"},
		{now.Add(-50 * time.Hour).Format(time.RFC3339), "2d ago"},
		{"2024-03-01T10:00:00Z", "Mar 1, 2024"},
		{"not a time", "not a time"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(tt.in); got != tt.want {
			t.Errorf("formatRelativeTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a  very\nlong   headline", 10); got != "a very lo…" {
		t.Errorf("got %q", got)
	}
}
