// ABOUTME: Modal dialogs drawn over the active screen
// ABOUTME: Enrollment confirmation and action result notices

package dialog

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/styles"
)

const modalWidth = 50

// Confirm renders the enrollment confirmation prompt for courseTitle
func Confirm(courseTitle string, busy bool) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Confirm enrollment"))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Width(modalWidth).Render(
		"Enroll in " + styles.ValueStyle.Render(plaintext.Clean(courseTitle)) + "?"))
	sb.WriteString("\n\n")
	if busy {
		sb.WriteString(styles.Subtitle.Render("Enrolling..."))
	} else {
		sb.WriteString(styles.KeyStyle.Render("y") + " confirm   " + styles.KeyStyle.Render("n") + " cancel")
	}
	return styles.ActivePanel.Render(sb.String())
}

// Notice renders a success or failure alert. isError selects the error styling.
func Notice(text string, isError bool) string {
	style := styles.InfoModal
	icon := styles.StatusOK.Render(icons.CheckOK.String())
	if isError {
		style = styles.ErrorModal
		icon = styles.StatusCritical.Render(icons.Critical.String())
	}

	body := lipgloss.NewStyle().Width(modalWidth).Render(icon + " " + plaintext.Clean(text))
	help := styles.Help.Render(styles.KeyStyle.Render("enter") + " dismiss")
	return style.Render(body + "\n" + help)
}

// Overlay centers modal in a width x height area
func Overlay(modal string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
