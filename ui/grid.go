/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Column describes one grid column for record type T. Cells render through
// Value; sorting compares the rendered cell unless Less is provided.
type Column[T any] struct {
	Title string
	Width int
	Value func(T) string
	Less  func(a, b T) bool
}

// ReorderMsg is emitted when the user moves a row; the app persists the new
// position through the owning store.
type ReorderMsg struct {
	Entity   string
	Key      string
	NewIndex int
}

// Grid is a sortable, filterable, paginated table over a record snapshot.
// It never mutates records; reorder requests surface as ReorderMsg.
type Grid[T any] struct {
	entity  string
	columns []Column[T]
	keyFunc func(T) string

	records  []T
	filtered []T

	table       table.Model
	filterInput textinput.Model

	filterFocused bool
	sortCol       int
	sortAsc       bool
	page          int
	pageSize      int
	expanded      bool

	styles Styles
}

// NewGrid creates a grid for entity with the given columns. keyFunc extracts
// the row identity used in reorder messages.
func NewGrid[T any](entity string, columns []Column[T], keyFunc func(T) string) Grid[T] {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	fi := textinput.New()
	fi.Placeholder = "Filter rows..."
	fi.CharLimit = 64
	fi.Width = 32

	return Grid[T]{
		entity:      entity,
		columns:     columns,
		keyFunc:     keyFunc,
		table:       t,
		filterInput: fi,
		sortCol:     -1,
		sortAsc:     true,
		pageSize:    15,
		styles:      DefaultStyles(),
	}
}

// SetRecords replaces the grid's snapshot and re-applies filter, sort and
// pagination.
func (g *Grid[T]) SetRecords(records []T) {
	g.records = records
	g.refresh()
}

// Selected returns the record under the cursor.
func (g *Grid[T]) Selected() (T, bool) {
	var zero T
	rows := g.pageRecords()
	cursor := g.table.Cursor()
	if cursor < 0 || cursor >= len(rows) {
		return zero, false
	}
	return rows[cursor], true
}

// FilterFocused reports whether keystrokes currently go to the filter box.
func (g *Grid[T]) FilterFocused() bool { return g.filterFocused }

// Update handles grid key bindings.
func (g Grid[T]) Update(msg tea.Msg) (Grid[T], tea.Cmd) {
	var cmd tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok {
		if g.filterFocused {
			switch key.String() {
			case "enter", "esc":
				g.filterFocused = false
				g.filterInput.Blur()
				return g, nil
			}
			g.filterInput, cmd = g.filterInput.Update(msg)
			g.refresh()
			return g, cmd
		}

		switch key.String() {
		case "/":
			g.filterFocused = true
			g.filterInput.Focus()
			return g, nil
		case "s":
			g.sortCol = (g.sortCol + 1) % len(g.columns)
			g.sortAsc = true
			g.refresh()
			return g, nil
		case "S":
			if g.sortCol >= 0 {
				g.sortAsc = !g.sortAsc
				g.refresh()
			}
			return g, nil
		case "[":
			if g.page > 0 {
				g.page--
				g.refresh()
			}
			return g, nil
		case "]":
			if g.page < g.totalPages()-1 {
				g.page++
				g.refresh()
			}
			return g, nil
		case "enter":
			g.expanded = !g.expanded
			return g, nil
		case "K":
			return g.moveSelected(-1)
		case "J":
			return g.moveSelected(1)
		}
	}

	g.table, cmd = g.table.Update(msg)
	return g, cmd
}

// moveSelected emits a reorder intent for the selected row. The store is the
// source of truth, so the grid itself stays untouched until the persisted
// order comes back.
func (g Grid[T]) moveSelected(delta int) (Grid[T], tea.Cmd) {
	rec, ok := g.Selected()
	if !ok {
		return g, nil
	}
	absolute := g.page*g.pageSize + g.table.Cursor() + delta
	if absolute < 0 || absolute >= len(g.filtered) {
		return g, nil
	}
	msg := ReorderMsg{
		Entity:   g.entity,
		Key:      g.keyFunc(rec),
		NewIndex: absolute,
	}
	return g, func() tea.Msg { return msg }
}

// refresh recomputes the visible rows from the snapshot.
func (g *Grid[T]) refresh() {
	g.filtered = filterRecords(g.records, g.columns, g.filterInput.Value())
	if g.sortCol >= 0 && g.sortCol < len(g.columns) {
		g.filtered = sortRecords(g.filtered, g.columns[g.sortCol], g.sortAsc)
	}
	if g.page >= g.totalPages() {
		g.page = g.totalPages() - 1
	}
	if g.page < 0 {
		g.page = 0
	}

	rows := make([]table.Row, 0, g.pageSize)
	for _, rec := range g.pageRecords() {
		row := make(table.Row, len(g.columns))
		for i, c := range g.columns {
			row[i] = c.Value(rec)
		}
		rows = append(rows, row)
	}
	g.table.SetRows(rows)
}

func (g *Grid[T]) totalPages() int {
	_, pages := paginate(g.filtered, 0, g.pageSize)
	return pages
}

func (g *Grid[T]) pageRecords() []T {
	page, _ := paginate(g.filtered, g.page, g.pageSize)
	return page
}

// View renders the filter bar, table, pagination line and, when expanded,
// the selected record's full detail.
func (g Grid[T]) View() string {
	var sb strings.Builder

	filterStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(g.styles.Border).
		Padding(0, 1)
	if g.filterFocused {
		filterStyle = filterStyle.BorderForeground(g.styles.Primary)
	}
	sb.WriteString(filterStyle.Render(g.filterInput.View()))
	sb.WriteString("\n")

	sb.WriteString(g.table.View())
	sb.WriteString("\n")

	sb.WriteString(g.styles.Muted.Render(g.pageLine()))

	if g.expanded {
		if rec, ok := g.Selected(); ok {
			sb.WriteString("\n")
			sb.WriteString(g.styles.Detail.Render(g.detail(rec)))
		}
	}
	return sb.String()
}

func (g Grid[T]) pageLine() string {
	pages := g.totalPages()
	line := ""
	if pages > 1 {
		line = fmt.Sprintf("page %d of %d", g.page+1, pages)
	}
	if len(g.filtered) != len(g.records) {
		if line != "" {
			line += "  "
		}
		line += fmt.Sprintf("showing %d of %d rows", len(g.filtered), len(g.records))
	}
	return line
}

// detail renders every column of the record, one per line.
func (g Grid[T]) detail(rec T) string {
	var sb strings.Builder
	for i, c := range g.columns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Title)
		sb.WriteString(": ")
		sb.WriteString(c.Value(rec))
	}
	return sb.String()
}

// filterRecords keeps the records whose rendered cells contain the query,
// case-insensitively. An empty query keeps everything.
func filterRecords[T any](records []T, columns []Column[T], query string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]T, len(records))
		copy(out, records)
		return out
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		for _, c := range columns {
			if strings.Contains(strings.ToLower(c.Value(rec)), query) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// sortRecords returns the records ordered by the column. The sort is stable
// so equal rows keep their server order.
func sortRecords[T any](records []T, col Column[T], asc bool) []T {
	out := make([]T, len(records))
	copy(out, records)

	less := col.Less
	if less == nil {
		less = func(a, b T) bool { return col.Value(a) < col.Value(b) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

// paginate slices out one page and reports the page count (always at least
// one).
func paginate[T any](records []T, page, size int) ([]T, int) {
	if size <= 0 {
		return records, 1
	}
	pages := (len(records) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start := page * size
	end := start + size
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], pages
}
