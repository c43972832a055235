package openapi

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B47E0")).
			Padding(0, 2)

	methodColors = map[string]string{
		"GET":    "#61AFEF",
		"POST":   "#98C379",
		"PUT":    "#E5C07B",
		"DELETE": "#E06C75",
		"PATCH":  "#C678DD",
	}

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B")).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ABB2BF"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")).
			MarginTop(1)

	paramStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98C379"))

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			Bold(true)

	codeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2C323C")).
			Foreground(lipgloss.Color("#ABB2BF")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B47E0")).
			Padding(1)
)

func methodStyle(method string) lipgloss.Style {
	color, ok := methodColors[method]
	if !ok {
		color = "#ABB2BF"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// Render lists actions grouped by name under the document title.
func (c *Catalog) Render(controller string, actions []Action) string {
	if len(actions) == 0 {
		return summaryStyle.Render("No actions found")
	}

	var output strings.Builder

	if info := c.Info(); info != nil {
		title := fmt.Sprintf(" %s ", info.Title)
		if info.Version != "" {
			title += fmt.Sprintf("v%s ", info.Version)
		}
		output.WriteString(titleStyle.Render(title))
		output.WriteString("\n\n")

		if info.Description != "" {
			description := info.Description
			if idx := strings.Index(description, ". "); idx > 0 && idx < 100 {
				description = description[:idx+1]
			} else if len(description) > 100 {
				description = description[:97] + "..."
			}
			output.WriteString(summaryStyle.Render(description))
			output.WriteString("\n")
		}
	}

	heading := "Actions"
	if controller != "" {
		heading = fmt.Sprintf("Actions of %s", controller)
	}
	output.WriteString(sectionStyle.Render(heading))
	output.WriteString("\n\n")

	current := ""
	for _, a := range actions {
		if a.Name != current {
			if current != "" {
				output.WriteString("\n")
			}
			output.WriteString(actionStyle.Render(a.Name))
			output.WriteString("\n")
			current = a.Name
		}

		output.WriteString("  ")
		output.WriteString(methodStyle(a.Method).Render(a.Method))
		if a.Summary != "" {
			output.WriteString("  ")
			output.WriteString(summaryStyle.Render(a.Summary))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// RenderAction shows the parameters and body expectations of one action.
func RenderAction(a Action) string {
	var output strings.Builder

	output.WriteString(methodStyle(a.Method).Render(a.Method))
	output.WriteString(" ")
	output.WriteString(actionStyle.Render(a.Name))
	output.WriteString("\n")

	if a.Summary != "" {
		output.WriteString("\n")
		output.WriteString(summaryStyle.Render(a.Summary))
		output.WriteString("\n")
	}
	if a.Description != "" && a.Description != a.Summary {
		output.WriteString(summaryStyle.Render(a.Description))
		output.WriteString("\n")
	}

	if len(a.QueryParams) > 0 {
		output.WriteString(sectionStyle.Render("Query parameters"))
		output.WriteString("\n")
		for _, p := range a.QueryParams {
			output.WriteString("  • ")
			output.WriteString(paramStyle.Render(p.Name))
			if p.Required {
				output.WriteString(" ")
				output.WriteString(requiredStyle.Render("*required"))
			}
			if p.Type != "" {
				output.WriteString(" ")
				output.WriteString(codeStyle.Render(p.Type))
			}
			if p.Description != "" {
				output.WriteString("  ")
				output.WriteString(summaryStyle.Render(p.Description))
			}
			output.WriteString("\n")
		}
	}

	if len(a.ContentTypes) > 0 {
		output.WriteString(sectionStyle.Render("Request body"))
		output.WriteString("\n")
		if a.BodyRequired {
			output.WriteString("  ")
			output.WriteString(requiredStyle.Render("Required"))
			output.WriteString("\n")
		}
		for _, ct := range a.ContentTypes {
			output.WriteString("  ")
			output.WriteString(codeStyle.Render(ct))
			output.WriteString("\n")
		}
	}

	return boxStyle.Render(output.String())
}
