package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/stocksync/internal/core"
)

// RecordTable renders a titled table of records with a 1-based index.
// An empty collection renders as "None".
func RecordTable(title string, records core.RecordCollection) string {
	heading := labelStyle.Render(fmt.Sprintf("%s (%d)", title, len(records)))
	if len(records) == 0 {
		return heading + " None\n"
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		created := ""
		if r.CreatedAt != nil {
			created = core.FormatTimestampIST(*r.CreatedAt)
		}
		rows[i] = []string{strconv.Itoa(i + 1), r.ScanCode, created}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#626262", Dark: "#a8a8a8"})).
		Headers("Sr No.", "Scan Code", "Created").
		Rows(rows...)

	return heading + "\n" + t.String() + "\n"
}
