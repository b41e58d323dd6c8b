/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/suparena/mfgstore/export"
	"github.com/suparena/mfgstore/insight"
	"github.com/suparena/mfgstore/models"
	"github.com/suparena/mfgstore/store"
)

// Tab indexes into the entity views.
type Tab int

const (
	TabProducts Tab = iota
	TabMaterials
	TabBatches
)

var tabTitles = []string{"Products", "Raw Materials", "Batches"}

type (
	tickMsg      time.Time
	refreshedMsg struct {
		entity string
		err    error
	}
	exportedMsg struct {
		path string
		err  error
	}
	insightResultMsg struct {
		text string
		err  error
	}
	reorderDoneMsg struct {
		err error
	}
)

// App is the root bubbletea model: one grid per entity store, a status bar,
// and commands for refresh, export and insight.
type App struct {
	products  *store.Store[models.Product]
	materials *store.Store[models.RawMaterial]
	batches   *store.Store[models.ProductionBatch]
	insights  *insight.Service
	log       zerolog.Logger

	productGrid  Grid[models.Product]
	materialGrid Grid[models.RawMaterial]
	batchGrid    Grid[models.ProductionBatch]

	tab         Tab
	toast       string
	insightText string
	quitting    bool

	styles Styles
}

// NewApp wires the three entity stores into the TUI.
func NewApp(
	products *store.Store[models.Product],
	materials *store.Store[models.RawMaterial],
	batches *store.Store[models.ProductionBatch],
	insights *insight.Service,
	log zerolog.Logger,
) App {
	return App{
		products:     products,
		materials:    materials,
		batches:      batches,
		insights:     insights,
		log:          log,
		productGrid:  NewGrid("products", productColumns(), productKey),
		materialGrid: NewGrid("raw_materials", materialColumns(), materialKey),
		batchGrid:    NewGrid("production_batches", batchColumns(), batchKey),
		styles:       DefaultStyles(),
	}
}

func productKey(p models.Product) string {
	if p.SkuID == nil {
		return ""
	}
	return *p.SkuID
}

func materialKey(m models.RawMaterial) string {
	if m.RawMaterialID == nil {
		return ""
	}
	return *m.RawMaterialID
}

func batchKey(b models.ProductionBatch) string {
	if b.BatchNumber == nil {
		return ""
	}
	return *b.BatchNumber
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func productColumns() []Column[models.Product] {
	return []Column[models.Product]{
		{Title: "SKU", Width: 10, Value: func(p models.Product) string { return deref(p.SkuID) }},
		{Title: "Name", Width: 24, Value: func(p models.Product) string { return deref(p.Name) }},
		{Title: "Category", Width: 14, Value: func(p models.Product) string { return p.Category }},
		{
			Title: "Stock",
			Width: 8,
			Value: func(p models.Product) string {
				if p.CurrentStock == nil {
					return ""
				}
				return strconv.FormatInt(*p.CurrentStock, 10)
			},
			Less: func(a, b models.Product) bool {
				var av, bv int64
				if a.CurrentStock != nil {
					av = *a.CurrentStock
				}
				if b.CurrentStock != nil {
					bv = *b.CurrentStock
				}
				return av < bv
			},
		},
		{
			Title: "Price",
			Width: 10,
			Value: func(p models.Product) string {
				if p.Price == nil {
					return ""
				}
				return strconv.FormatFloat(*p.Price, 'f', 2, 64)
			},
			Less: func(a, b models.Product) bool {
				var av, bv float64
				if a.Price != nil {
					av = *a.Price
				}
				if b.Price != nil {
					bv = *b.Price
				}
				return av < bv
			},
		},
		{
			Title: "Active",
			Width: 7,
			Value: func(p models.Product) string {
				if p.IsActive != nil && *p.IsActive {
					return "yes"
				}
				return "no"
			},
		},
	}
}

func materialColumns() []Column[models.RawMaterial] {
	return []Column[models.RawMaterial]{
		{Title: "ID", Width: 10, Value: func(m models.RawMaterial) string { return deref(m.RawMaterialID) }},
		{Title: "Name", Width: 24, Value: func(m models.RawMaterial) string { return deref(m.Name) }},
		{Title: "Unit", Width: 7, Value: func(m models.RawMaterial) string { return deref(m.Unit) }},
		{
			Title: "Cost",
			Width: 10,
			Value: func(m models.RawMaterial) string {
				if m.CostPerUnit == nil {
					return ""
				}
				return strconv.FormatFloat(*m.CostPerUnit, 'f', 2, 64)
			},
		},
		{
			Title: "Stock",
			Width: 10,
			Value: func(m models.RawMaterial) string {
				if m.CurrentStock == nil {
					return ""
				}
				return strconv.FormatFloat(*m.CurrentStock, 'f', 1, 64)
			},
		},
		{Title: "Supplier", Width: 18, Value: func(m models.RawMaterial) string { return m.Supplier }},
	}
}

func batchColumns() []Column[models.ProductionBatch] {
	return []Column[models.ProductionBatch]{
		{Title: "Batch", Width: 12, Value: func(b models.ProductionBatch) string { return deref(b.BatchNumber) }},
		{Title: "SKU", Width: 10, Value: func(b models.ProductionBatch) string { return deref(b.SkuID) }},
		{Title: "Status", Width: 12, Value: func(b models.ProductionBatch) string { return deref(b.Status) }},
		{
			Title: "Produced",
			Width: 9,
			Value: func(b models.ProductionBatch) string {
				return strconv.FormatInt(b.QuantityProduced, 10)
			},
		},
		{
			Title: "Wasted",
			Width: 8,
			Value: func(b models.ProductionBatch) string {
				return strconv.FormatInt(b.QuantityWasted, 10)
			},
		},
		{Title: "Notes", Width: 24, Value: func(b models.ProductionBatch) string { return b.Notes }},
	}
}

// Init starts the periodic snapshot resync that keeps grids in step with
// background change events.
func (a App) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		a.syncGrids()
		return a, tick()

	case refreshedMsg:
		if msg.err != nil {
			a.toast = fmt.Sprintf("refresh failed: %v", msg.err)
		} else {
			a.toast = msg.entity + " refreshed"
		}
		a.syncGrids()
		return a, nil

	case exportedMsg:
		if msg.err != nil {
			a.toast = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			a.toast = "exported to " + msg.path
		}
		return a, nil

	case insightResultMsg:
		if msg.err != nil {
			a.toast = fmt.Sprintf("insight unavailable: %v", msg.err)
		} else {
			a.insightText = msg.text
			a.toast = "insight updated"
		}
		return a, nil

	case reorderDoneMsg:
		if msg.err != nil {
			a.toast = fmt.Sprintf("reorder failed: %v", msg.err)
		} else {
			a.toast = "order saved"
		}
		a.syncGrids()
		return a, nil

	case ReorderMsg:
		return a, a.persistReorder(msg)

	case tea.KeyMsg:
		if !a.activeFilterFocused() {
			switch msg.String() {
			case "q", "ctrl+c":
				a.quitting = true
				return a, tea.Quit
			case "tab":
				a.tab = (a.tab + 1) % 3
				return a, nil
			case "shift+tab":
				a.tab = (a.tab + 2) % 3
				return a, nil
			case "R":
				return a, a.refreshActive()
			case "e":
				return a, a.exportActive()
			case "i":
				return a, a.requestInsight()
			}
		}
	}

	var cmd tea.Cmd
	switch a.tab {
	case TabProducts:
		a.productGrid, cmd = a.productGrid.Update(msg)
	case TabMaterials:
		a.materialGrid, cmd = a.materialGrid.Update(msg)
	case TabBatches:
		a.batchGrid, cmd = a.batchGrid.Update(msg)
	}
	return a, cmd
}

func (a *App) activeFilterFocused() bool {
	switch a.tab {
	case TabProducts:
		return a.productGrid.FilterFocused()
	case TabMaterials:
		return a.materialGrid.FilterFocused()
	default:
		return a.batchGrid.FilterFocused()
	}
}

func (a *App) syncGrids() {
	a.productGrid.SetRecords(a.products.Snapshot())
	a.materialGrid.SetRecords(a.materials.Snapshot())
	a.batchGrid.SetRecords(a.batches.Snapshot())
}

func (a *App) refreshActive() tea.Cmd {
	switch a.tab {
	case TabProducts:
		s := a.products
		return func() tea.Msg { return refreshedMsg{entity: s.Name(), err: s.Refresh(context.Background())} }
	case TabMaterials:
		s := a.materials
		return func() tea.Msg { return refreshedMsg{entity: s.Name(), err: s.Refresh(context.Background())} }
	default:
		s := a.batches
		return func() tea.Msg { return refreshedMsg{entity: s.Name(), err: s.Refresh(context.Background())} }
	}
}

func (a *App) exportActive() tea.Cmd {
	tab := a.tab
	products := a.products
	materials := a.materials
	batches := a.batches

	return func() tea.Msg {
		stamp := time.Now().Format("20060102-150405")
		var path string
		var err error
		switch tab {
		case TabProducts:
			path = "products-" + stamp + ".csv"
			err = writeCSV(path, products.Snapshot())
		case TabMaterials:
			path = "raw-materials-" + stamp + ".csv"
			err = writeCSV(path, materials.Snapshot())
		default:
			path = "batches-" + stamp + ".csv"
			err = writeCSV(path, batches.Snapshot())
		}
		return exportedMsg{path: path, err: err}
	}
}

func writeCSV[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.Write(f, records)
}

func (a *App) requestInsight() tea.Cmd {
	svc := a.insights
	stats := insight.BuildStats(a.products.Snapshot(), a.materials.Snapshot(), a.batches.Snapshot())

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text, err := svc.Summary(ctx, stats)
		return insightResultMsg{text: text, err: err}
	}
}

// persistReorder writes the new display position through the product store.
// Only products carry a persisted order.
func (a *App) persistReorder(msg ReorderMsg) tea.Cmd {
	if msg.Entity != "products" {
		return func() tea.Msg { return reorderDoneMsg{} }
	}
	s := a.products
	return func() tea.Msg {
		_, err := s.Update(context.Background(), msg.Key, map[string]any{
			"order_index": msg.NewIndex,
		})
		return reorderDoneMsg{err: err}
	}
}

func (a App) View() string {
	if a.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(a.styles.Header.Render(" Manufacturing Operations "))
	sb.WriteString("\n")

	for i, title := range tabTitles {
		if Tab(i) == a.tab {
			sb.WriteString(a.styles.TabOn.Render(title))
		} else {
			sb.WriteString(a.styles.Tab.Render(title))
		}
	}
	sb.WriteString("\n\n")

	switch a.tab {
	case TabProducts:
		sb.WriteString(a.productGrid.View())
	case TabMaterials:
		sb.WriteString(a.materialGrid.View())
	case TabBatches:
		sb.WriteString(a.batchGrid.View())
	}
	sb.WriteString("\n")

	sb.WriteString(a.statusLine())

	if a.toast != "" {
		sb.WriteString("\n")
		sb.WriteString(a.styles.Toast.Render(a.toast))
	}
	if a.insightText != "" {
		sb.WriteString("\n\n")
		sb.WriteString(a.styles.Detail.Render(a.insightText))
	}

	sb.WriteString("\n")
	sb.WriteString(a.styles.Muted.Render("tab switch  / filter  s/S sort  [ ] page  enter expand  K/J move  R refresh  e export  i insight  q quit"))
	return sb.String()
}

// statusLine reports the active store's lifecycle state and last error.
func (a App) statusLine() string {
	var state store.State
	var err error
	var name string

	switch a.tab {
	case TabProducts:
		state, err, name = a.products.State(), a.products.Err(), a.products.Name()
	case TabMaterials:
		state, err, name = a.materials.State(), a.materials.Err(), a.materials.Name()
	default:
		state, err, name = a.batches.State(), a.batches.Err(), a.batches.Name()
	}

	line := a.styles.Status.Render(fmt.Sprintf("%s: %s", name, state))
	if err != nil {
		line += "  " + a.styles.Error.Render(err.Error())
	}
	return line
}
