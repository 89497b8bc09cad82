package render

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// Styles decorates the editor's output.
type Styles struct {
	Title    lipgloss.Style
	Name     lipgloss.Style
	Value    lipgloss.Style
	Editable lipgloss.Style
	ReadOnly lipgloss.Style
}

// PlainStyles leaves text undecorated.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Name: s, Value: s, Editable: s, ReadOnly: s}
}

// DefaultStyles are used for terminals.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		Name:     lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		Editable: lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		ReadOnly: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithStyles sets the editor's styles.
func WithStyles(s Styles) EditorOption {
	return func(e *Editor) {
		e.styles = s
	}
}

// Editor renders a property sheet for an object through its type
// descriptor. Editable scalar fields show their value, editable nested
// fields expand into a sheet of their own, and everything else is marked
// read-only.
type Editor struct {
	reg    *registry.Registry
	styles Styles
}

// NewEditor creates an editor reading types from reg.
func NewEditor(reg *registry.Registry, opts ...EditorOption) *Editor {
	e := &Editor{reg: reg, styles: PlainStyles()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render writes the property sheet of the instance of t at base to w.
func (e *Editor) Render(w io.Writer, mem hotreflect.Memory, base uint32, t *typedesc.Type) error {
	var b strings.Builder
	if err := e.sheet(&b, mem, base, t, 0); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the property sheet as text.
func (e *Editor) String(mem hotreflect.Memory, base uint32, t *typedesc.Type) (string, error) {
	var b strings.Builder
	err := e.sheet(&b, mem, base, t, 0)
	return b.String(), err
}

// Set writes an editable field addressed by a dotted path.
func (e *Editor) Set(mem hotreflect.Memory, base uint32, t *typedesc.Type, path, text string) error {
	return Set(e.reg, mem, base, t, path, text)
}

func (e *Editor) sheet(b *strings.Builder, mem hotreflect.Memory, base uint32, t *typedesc.Type, depth int) error {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(e.styles.Title.Render("=== " + t.Name + " Editor ==="))
	b.WriteByte('\n')

	for i := range t.Fields {
		f := &t.Fields[i]
		b.WriteString(indent)
		b.WriteString("  ")
		b.WriteString(e.styles.Name.Render(f.Name))
		b.WriteString(":")

		v, err := e.reg.Read(mem, base, t, i)
		if err != nil {
			return err
		}
		r := Row{Value: v, Field: f}
		switch {
		case f.Editable() && v.Kind == typedesc.KindNested:
			b.WriteByte('\n')
			if nt, ok := e.reg.Nested(v); ok {
				if err := e.sheet(b, mem, v.Addr, nt, depth+1); err != nil {
					return err
				}
			}
		case r.Editable():
			b.WriteString(" ")
			b.WriteString(e.styles.Value.Render(editValue(v)))
			b.WriteString(" ")
			b.WriteString(e.styles.Editable.Render("[editable]"))
			b.WriteByte('\n')
		default:
			b.WriteString(" ")
			b.WriteString(e.styles.ReadOnly.Render("[read-only]"))
			b.WriteByte('\n')
		}
	}
	return nil
}

// editValue formats floats with two decimals, the precision an editor
// shows; other kinds use their default form.
func editValue(v registry.Value) string {
	if v.Kind.Float() {
		return strconv.FormatFloat(v.Float(), 'f', 2, 64)
	}
	return v.String()
}
