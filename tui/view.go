package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"news_blog_gen/article"
	"news_blog_gen/export"
	"news_blog_gen/generator"
	"news_blog_gen/viewstate"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	focusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	boxStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func (a *App) View() string {
	switch a.view.Screen {
	case viewstate.ScreenLanding:
		return a.landingView()
	case viewstate.ScreenWizard:
		return a.wizardView()
	default:
		return a.editorView()
	}
}

func (a *App) landingView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("News Blog Generator"))
	b.WriteString("\n\n")
	b.WriteString("Turn news keywords into a sourced blog post, then refine and translate it.\n\n")
	b.WriteString(hintStyle.Render("enter: start · q: quit"))
	return boxStyle.Render(b.String())
}

func (a *App) wizardView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New post"))
	b.WriteString("\n\n")

	b.WriteString(a.fieldLabel(fieldKeywords, "Keywords"))
	b.WriteString("\n")
	b.WriteString(a.keywords.View())
	b.WriteString("\n\n")
	b.WriteString(a.choiceRow(fieldPeriod, "Period", generator.Periods[a.period].Label()))
	b.WriteString(a.choiceRow(fieldTone, "Tone", generator.Tones[a.tone].Label()))
	b.WriteString(a.choiceRow(fieldLength, "Length", generator.Lengths[a.length].Label()))
	b.WriteString("\n")

	if a.busy {
		b.WriteString(a.progress.ViewAs(a.percent))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(a.stage))
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString(errorStyle.Render(a.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if a.busy {
		b.WriteString(hintStyle.Render("esc: cancel"))
	} else {
		b.WriteString(hintStyle.Render("↑/↓: field · ←/→: change · enter: generate · esc: back"))
	}
	return boxStyle.Render(b.String())
}

func (a *App) fieldLabel(field int, label string) string {
	if a.focus == field {
		return focusStyle.Render("› " + label)
	}
	return "  " + label
}

func (a *App) choiceRow(field int, label, value string) string {
	return fmt.Sprintf("%-12s ‹ %s ›\n", a.fieldLabel(field, label), value)
}

func (a *App) editorView() string {
	snap := a.orch.Snapshot()
	title := "(untitled)"
	if snap.Article != nil {
		title = snap.Article.Title
	}

	header := titleStyle.Render(title) + "  " + a.tabs()
	main := lipgloss.NewStyle().Width(a.body.Width).Render(a.body.View())
	if a.view.SidebarOpen {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, a.sidebar(snap.Conversation))
	}

	var footer strings.Builder
	if menu := a.menu(); menu != "" {
		footer.WriteString(menu)
		footer.WriteString("\n")
	}
	footer.WriteString(a.instruction.View())
	footer.WriteString("\n")
	switch {
	case a.err != nil:
		footer.WriteString(errorStyle.Render(a.err.Error()))
	case a.status != "":
		footer.WriteString(hintStyle.Render(a.status))
	}
	footer.WriteString("\n")
	footer.WriteString(hintStyle.Render("tab: edit/preview · ctrl+b: chat · ctrl+l: translate · ctrl+e: export · ctrl+z: undo · esc: cancel · ctrl+c: quit"))

	return lipgloss.JoinVertical(lipgloss.Left, header, main, footer.String())
}

func (a *App) tabs() string {
	edit, preview := "Edit", "Preview"
	if a.view.Tab == viewstate.TabEdit {
		edit = activeTabStyle.Render(edit)
	} else {
		preview = activeTabStyle.Render(preview)
	}
	return edit + " | " + preview
}

func (a *App) sidebar(entries []article.Entry) string {
	width := sidebarWidth - 4
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		text := string(e.Speaker) + ": " + e.Text
		switch e.Kind {
		case article.KindWarning:
			text = warnStyle.Render(text)
		case article.KindError:
			text = errorStyle.Render(text)
		}
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(text))
	}
	// 只保留能放下的最新几条
	height := max(3, a.body.Height-2)
	content := strings.Join(lines, "\n")
	if rows := strings.Split(content, "\n"); len(rows) > height {
		content = strings.Join(rows[len(rows)-height:], "\n")
	}
	return boxStyle.Width(width).Height(height).Render(content)
}

func (a *App) menu() string {
	var items []string
	switch {
	case a.view.LangMenuOpen:
		for i, lang := range generator.Languages {
			items = append(items, fmt.Sprintf("%d %s", i+1, lang))
		}
		return "Translate to: " + strings.Join(items, " · ")
	case a.view.ExportMenuOpen:
		for i, f := range export.Formats {
			items = append(items, fmt.Sprintf("%d %s", i+1, formatLabel(f)))
		}
		return "Export as: " + strings.Join(items, " · ")
	}
	return ""
}

func formatLabel(f export.Format) string {
	if f == export.FormatWord {
		return "Word"
	}
	return "HTML"
}

// previewText is the reader-facing rendering: plain text followed by sources
// and tags.
func previewText(a article.Article, width int) string {
	var b strings.Builder
	b.WriteString(article.PlainText(a.Body))
	if len(a.Sources) > 0 {
		b.WriteString("\n\nSources\n")
		for _, s := range a.Sources {
			if s.URL != "" {
				fmt.Fprintf(&b, "• %s (%s)\n", s.Title, s.URL)
			} else {
				fmt.Fprintf(&b, "• %s\n", s.Title)
			}
		}
	}
	if len(a.Tags) > 0 {
		tags := make([]string, len(a.Tags))
		for i, t := range a.Tags {
			tags[i] = "#" + t
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(tags, " "))
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}
