package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatClans writes clans as indented JSON.
func (f *Formatter) FormatClans(clans []ClanDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(clans)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = cellStyle.Foreground(lipgloss.Color("#888888"))
)

// FormatClanTable writes clans as a bordered table. Each color cell is
// drawn in the clan's own color.
func (f *Formatter) FormatClanTable(clans []ClanDTO) error {
	if len(clans) == 0 {
		_, err := fmt.Fprintln(f.writer, dimStyle.Render("No clans registered."))
		return err
	}

	rows := make([][]string, 0, len(clans))
	for _, c := range clans {
		rows = append(rows, []string{
			c.Tag,
			c.Name,
			c.Server,
			c.Color,
			c.Leader.Nickname,
			strconv.Itoa(c.Members),
			c.CreatedAt.Format("2006-01-02"),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("TAG", "NAME", "SERVER", "COLOR", "LEADER", "MEMBERS", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 && row >= 0 && row < len(clans) {
				return cellStyle.Foreground(lipgloss.Color(clans[row].Color))
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(f.writer, t.String())
	return err
}
