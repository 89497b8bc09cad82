package render

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/wippyai/hotreflect"
	"github.com/wippyai/hotreflect/errors"
	"github.com/wippyai/hotreflect/registry"
	"github.com/wippyai/hotreflect/typedesc"
)

// Binary stands in for storage that has no JSON form.
const Binary = "<binary>"

// JSONOption configures a JSON serializer.
type JSONOption func(*JSON)

// WithTextBytes renders byte buffer fields as strings up to their first NUL
// instead of as Binary.
func WithTextBytes() JSONOption {
	return func(j *JSON) {
		j.textBytes = true
	}
}

// WithIndent sets the indentation unit. The default is two spaces.
func WithIndent(s string) JSONOption {
	return func(j *JSON) {
		j.indent = s
	}
}

// JSON serializes objects through their type descriptors into documents
// keyed by field name. Each object carries its type name under "_type",
// first. Floats are written with three decimals; nested fields become
// nested objects.
type JSON struct {
	reg       *registry.Registry
	indent    string
	textBytes bool
}

// NewJSON creates a serializer reading types from reg.
func NewJSON(reg *registry.Registry, opts ...JSONOption) *JSON {
	j := &JSON{reg: reg, indent: "  "}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Marshal returns the document for the instance of t at base.
func (j *JSON) Marshal(mem hotreflect.Memory, base uint32, t *typedesc.Type) ([]byte, error) {
	var buf bytes.Buffer
	if err := j.object(&buf, mem, base, t, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the document for the instance of t at base to w, followed
// by a newline.
func (j *JSON) Encode(w io.Writer, mem hotreflect.Memory, base uint32, t *typedesc.Type) error {
	data, err := j.Marshal(mem, base, t)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (j *JSON) object(buf *bytes.Buffer, mem hotreflect.Memory, base uint32, t *typedesc.Type, depth int) error {
	buf.WriteString("{\n")
	j.pad(buf, depth+1)
	buf.WriteString(`"_type": `)
	writeString(buf, t.Name)

	for i := range t.Fields {
		buf.WriteString(",\n")
		j.pad(buf, depth+1)
		writeString(buf, t.Fields[i].Name)
		buf.WriteString(": ")

		v, err := j.reg.Read(mem, base, t, i)
		if err != nil {
			return errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Path(t.Name, t.Fields[i].Name).
				Type(t.Name).
				Cause(err).
				Build()
		}
		if err := j.value(buf, mem, v, depth+1); err != nil {
			return err
		}
	}

	buf.WriteByte('\n')
	j.pad(buf, depth)
	buf.WriteByte('}')
	return nil
}

func (j *JSON) value(buf *bytes.Buffer, mem hotreflect.Memory, v registry.Value, depth int) error {
	switch {
	case v.Kind.Float():
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'f', 3, 64))
	case v.Kind.Signed():
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case v.Kind == typedesc.KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case v.Kind.Scalar():
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case v.Kind == typedesc.KindBytes && j.textBytes:
		writeString(buf, v.Text())
	case v.Kind == typedesc.KindNested:
		nt, ok := j.reg.Nested(v)
		if !ok {
			writeString(buf, Binary)
			return nil
		}
		return j.object(buf, mem, v.Addr, nt, depth)
	default:
		writeString(buf, Binary)
	}
	return nil
}

func (j *JSON) pad(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString(j.indent)
	}
}

// writeString quotes s as a JSON string. Markup characters are written
// as is, so "<binary>" reads the same in the output.
func writeString(buf *bytes.Buffer, s string) {
	var q bytes.Buffer
	enc := json.NewEncoder(&q)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(q.Bytes(), []byte("\n")))
}
