/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles shared by the grid and app views.
type Styles struct {
	Primary lipgloss.Color
	Border  lipgloss.Color

	Header lipgloss.Style
	Tab    lipgloss.Style
	TabOn  lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Toast  lipgloss.Style
	Muted  lipgloss.Style
	Detail lipgloss.Style
}

func DefaultStyles() Styles {
	primary := lipgloss.Color("#8BC34A")
	border := lipgloss.Color("#2a3850")
	muted := lipgloss.Color("#6b7a90")

	return Styles{
		Primary: primary,
		Border:  border,
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			Padding(0, 1),
		Tab: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 2),
		TabOn: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			Underline(true).
			Padding(0, 2),
		Status: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935")),
		Toast: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107")),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Detail: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}
