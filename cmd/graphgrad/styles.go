package main

import "github.com/charmbracelet/lipgloss"

var styles = struct {
	Title lipgloss.Style
	Name  lipgloss.Style
	Muted lipgloss.Style
	OK    lipgloss.Style
	Fail  lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4")),
	Name:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
	Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	OK:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	Fail:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C")),
}
