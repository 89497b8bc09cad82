package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/hotreflect/render"
	"github.com/wippyai/hotreflect/typedesc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectObject modelState = iota
	stateInspect
	stateEdit
)

type interactiveModel struct {
	ctx      context.Context
	err      error
	h        *host
	status   string
	objects  []object
	rows     []render.Row
	input    textinput.Model
	interval time.Duration
	selected int
	rowIdx   int
	state    modelState
	watch    bool
}

type tickMsg time.Time

func newInteractiveModel(ctx context.Context, h *host, watch bool) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		h:        h,
		interval: h.cfg.Loader.PollInterval.Duration,
		watch:    watch,
		state:    stateSelectObject,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	m.refresh()
	if m.watch {
		return m.tick()
	}
	return nil
}

func (m *interactiveModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh re-reads the object list. Reloads invalidate types and memory, so
// any open inspector goes back to the list.
func (m *interactiveModel) refresh() {
	objs, err := objects(m.ctx, m.h, "")
	m.objects = objs
	m.err = err
	if m.selected >= len(m.objects) {
		m.selected = 0
	}
	m.rows = nil
	m.state = stateSelectObject
}

func (m *interactiveModel) loadRows() {
	o := m.objects[m.selected]
	rows, err := render.Rows(m.h.reg, o.mem, o.base, o.typ)
	m.rows = rows
	m.err = err
	if m.rowIdx >= len(m.rows) {
		m.rowIdx = 0
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateEdit {
			return m.updateEdit(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			switch m.state {
			case stateSelectObject:
				if m.selected > 0 {
					m.selected--
				}
			case stateInspect:
				if m.rowIdx > 0 {
					m.rowIdx--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectObject:
				if m.selected < len(m.objects)-1 {
					m.selected++
				}
			case stateInspect:
				if m.rowIdx < len(m.rows)-1 {
					m.rowIdx++
				}
			}

		case "enter":
			switch m.state {
			case stateSelectObject:
				if len(m.objects) > 0 {
					m.rowIdx = 0
					m.loadRows()
					m.state = stateInspect
				}
			case stateInspect:
				m.startEdit()
			}

		case "r":
			m.reloadAll()

		case "esc":
			if m.state == stateInspect {
				m.state = stateSelectObject
				m.rows = nil
			}
		}

	case tickMsg:
		n, err := m.h.loader.Poll(m.ctx)
		if n > 0 {
			m.refresh()
			m.status = fmt.Sprintf("reloaded %d module(s)", n)
			m.err = err
		}
		return m, m.tick()
	}

	return m, nil
}

func (m *interactiveModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateInspect
		return m, nil
	case "enter":
		r := m.rows[m.rowIdx]
		o := m.objects[m.selected]
		m.err = render.Set(m.h.reg, o.mem, r.Base, r.Owner, r.Field.Name, m.input.Value())
		if m.err == nil {
			m.status = "set " + r.Path
		}
		m.loadRows()
		m.state = stateInspect
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) startEdit() {
	if len(m.rows) == 0 {
		return
	}
	r := m.rows[m.rowIdx]
	if !r.Editable() {
		m.status = r.Path + " is read-only"
		return
	}
	ti := textinput.New()
	ti.Prompt = r.Path + ": "
	ti.Placeholder = r.Value.Kind.String()
	ti.SetValue(r.Value.String())
	if r.Value.Kind == typedesc.KindBytes {
		ti.SetValue(r.Value.Text())
	}
	ti.Width = 40
	ti.Focus()
	m.input = ti
	m.state = stateEdit
}

func (m *interactiveModel) reloadAll() {
	var failed []string
	for _, id := range m.h.loader.Modules() {
		st, _ := m.h.loader.Status(id)
		if err := m.h.loader.Reload(m.ctx, st.Path); err != nil {
			failed = append(failed, st.Name)
		}
	}
	m.refresh()
	m.status = "reloaded all modules"
	if len(failed) > 0 {
		m.status += ", with errors in " + strings.Join(failed, ", ")
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Hot Reflect"))
	stats := m.h.reg.Stats()
	b.WriteString(fmt.Sprintf(" %d types, %d modules", stats.ValidTypes, stats.Modules-1))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectObject:
		if len(m.objects) == 0 {
			b.WriteString("No live objects.\n")
		}
		for i, o := range m.objects {
			line := o.label()
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • r reload • q quit"))

	case stateInspect, stateEdit:
		o := m.objects[m.selected]
		b.WriteString(nameStyle.Render(o.label()))
		b.WriteString("\n\n")
		for i, r := range m.rows {
			line := strings.Repeat("  ", r.Depth) + nameStyle.Render(r.Field.Name) + ": "
			if r.Value.Kind == typedesc.KindNested {
				line += kindStyle.Render(r.Value.Kind.String())
			} else {
				line += r.Value.String() + " " + kindStyle.Render(r.Value.Kind.String())
			}
			if !r.Editable() {
				line += helpStyle.Render(" [read-only]")
			}
			cursor := "  "
			if i == m.rowIdx {
				cursor = "> "
			}
			b.WriteString(cursor + line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateEdit {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter set • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter edit • esc back • r reload • q quit"))
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

func runInteractive(ctx context.Context, h *host, watch bool) error {
	p := tea.NewProgram(newInteractiveModel(ctx, h, watch), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
