// Package tui provides a Bubble Tea TUI for previewing recording scripts.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/screencast/internal/script"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	kindStyles = map[script.Kind]lipgloss.Style{
		script.KindCommand: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		script.KindKey:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		script.KindSleep:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true),
		script.KindPause:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		script.KindToggle:  lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
	}
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabDirectives tabID = iota
	tabSummary
	tabProblems
	tabCount
)

var tabNames = [tabCount]string{"Directives", "Summary", "Problems"}

// DirectivesMsg replaces the previewed directives, e.g. after the script
// file changed on disk.
type DirectivesMsg []script.Directive

// Model is the Bubble Tea model for the script preview.
type Model struct {
	directives []script.Directive
	estimate   Estimate
	problems   []error
	opts       Options
	filename   string
	activeTab  tabID
	viewports  [tabCount]viewport.Model
	width      int
	height     int
	ready      bool
	cursor     int
	reloads    int
}

// New creates a Model for previewing directives read from filename.
func New(directives []script.Directive, filename string, opts Options) Model {
	m := Model{opts: opts, filename: filepath.Base(filename)}
	m.setDirectives(directives)
	return m
}

func (m *Model) setDirectives(directives []script.Directive) {
	m.directives = directives
	m.estimate = Predict(directives, m.opts)
	m.problems = script.Lint(directives)
	if m.cursor >= len(directives) {
		m.cursor = max(len(directives)-1, 0)
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "up", "k":
			if m.activeTab == tabDirectives && m.cursor > 0 {
				m.cursor--
				m.refresh()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabDirectives && m.cursor < len(m.directives)-1 {
				m.cursor++
				m.refresh()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case DirectivesMsg:
		m.setDirectives(msg)
		m.reloads++
		if m.ready {
			m.refresh()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	label := "  screencast  " + m.filename
	if m.reloads > 0 {
		label += fmt.Sprintf("  (reloaded %d×)", m.reloads)
	}
	title := titleStyle.Width(m.width).Render(label)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		name := tabNames[i]
		if i == tabProblems && len(m.problems) > 0 {
			name = fmt.Sprintf("%s (%d)", name, len(m.problems))
		}
		text := fmt.Sprintf(" %d %s ", i+1, name)
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(text))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(text))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	if m.activeTab == tabDirectives {
		hint = "  ←/→ tab  ↑/↓ select  1-3 jump  q quit"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ────────────────

func (m *Model) initViewports() {
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) refresh() {
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i].SetContent(m.renderTab(i))
	}
}

// ── Tab renderers ───────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabDirectives:
		return m.renderDirectives()
	case tabSummary:
		return m.renderSummary()
	case tabProblems:
		return m.renderProblems()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderDirectives() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Directives (%d)", len(m.directives))))
	if len(m.directives) == 0 {
		sb.WriteString(dimStyle.Render("  (no directives; only fenced blocks are read)") + "\n")
		return sb.String()
	}
	for i, d := range m.directives {
		line := lineStyle.Render(fmt.Sprintf("%4d", d.Line()))
		badge := kindStyles[d.Kind()].Render(fmt.Sprintf("%-7s", d.Kind()))
		row := fmt.Sprintf("  %s  %s  %s", line, badge, payload(d))
		if i == m.cursor {
			row = selectedRowStyle.Width(max(m.width-2, 1)).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	sb.WriteString(heading("Script Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	e := m.estimate
	row("Directives:", fmt.Sprintf("%d", len(m.directives)))
	for _, k := range []script.Kind{script.KindCommand, script.KindKey, script.KindSleep, script.KindPause, script.KindToggle} {
		row(k.String()+":", fmt.Sprintf("%d", e.Counts[k]))
	}
	sb.WriteString(heading("Timing"))
	row("Sleeping:", e.Sleep.String())
	row("Typing:", e.Typing.String())
	row("Overlay:", e.Overlay.String())
	row("Total:", e.Total().String()+dimStyle.Render(fmt.Sprintf("  + %d operator pauses", e.Counts[script.KindPause])))
	return sb.String()
}

func (m *Model) renderProblems() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Problems (%d)", len(m.problems))))
	if len(m.problems) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, err := range m.problems {
		sb.WriteString("  " + errorStyle.Render("✗") + "  " + err.Error() + "\n")
	}
	return sb.String()
}

func payload(d script.Directive) string {
	switch d := d.(type) {
	case script.Command:
		return d.Text
	case script.Key:
		return strings.Join(d.Names, " ")
	case script.Sleep:
		return d.Raw
	case script.Pause:
		if d.Auto {
			return dimStyle.Render("(autopause)")
		}
	}
	return ""
}

// ── Entry point ─────────────────────────

// Run starts the preview TUI. Each value received on updates replaces the
// displayed directives; updates may be nil.
func Run(directives []script.Directive, filename string, opts Options, updates <-chan []script.Directive) error {
	p := tea.NewProgram(New(directives, filename, opts), tea.WithAltScreen())
	if updates != nil {
		go func() {
			for d := range updates {
				p.Send(DirectivesMsg(d))
			}
		}()
	}
	_, err := p.Run()
	return err
}
