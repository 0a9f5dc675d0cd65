// Package table renders the recorder's human-readable listings.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

var (
	borderColor  = lipgloss.Color("8")
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	rowStyle     = lipgloss.NewStyle().Padding(0, 1)
	mutedRowText = lipgloss.Color("8")
)

// NewStyledTable creates a lipgloss table with the recorder's default styling.
func NewStyledTable() *ltable.Table {
	return NewBuilder().Build()
}

// Options configures a styled table.
type Options struct {
	// MutedColumns render in a dimmer colour, e.g. timestamps.
	MutedColumns map[int]bool
}

// DefaultOptions returns the default table options.
func DefaultOptions() Options {
	return Options{}
}

// Builder provides a fluent interface for creating styled tables
type Builder struct {
	table   *ltable.Table
	options Options
}

// NewBuilder creates a new table builder
func NewBuilder() *Builder {
	return &Builder{
		table:   ltable.New(),
		options: DefaultOptions(),
	}
}

// WithMutedColumn dims column col.
func (b *Builder) WithMutedColumn(col int) *Builder {
	if b.options.MutedColumns == nil {
		b.options.MutedColumns = make(map[int]bool)
	}
	b.options.MutedColumns[col] = true
	return b
}

// WithHeaders sets the table headers
func (b *Builder) WithHeaders(headers ...string) *Builder {
	b.table = b.table.Headers(headers...)
	return b
}

// WithRows appends rows
func (b *Builder) WithRows(rows ...[]string) *Builder {
	for _, row := range rows {
		b.table = b.table.Row(row...)
	}
	return b
}

// Build creates the styled table
func (b *Builder) Build() *ltable.Table {
	b.table = b.table.
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor))

	muted := b.options.MutedColumns
	// Header cells come through as row ltable.HeaderRow; data rows start at 0.
	b.table = b.table.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return headerStyle
		}
		if muted[col] {
			return rowStyle.Foreground(mutedRowText)
		}
		return rowStyle
	})
	return b.table
}

// SimpleTable renders headers and rows with the default styling.
func SimpleTable(headers []string, rows [][]string) string {
	return NewBuilder().
		WithHeaders(headers...).
		WithRows(rows...).
		Build().
		String()
}
