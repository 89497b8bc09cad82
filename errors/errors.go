package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // type registration
	PhaseLookup   Phase = "lookup"   // hash/id/name lookup
	PhaseAccess   Phase = "access"   // field access through descriptors
	PhaseLoad     Phase = "load"     // module loading
	PhaseReload   Phase = "reload"   // hot reload sequence
	PhaseState    Phase = "state"    // state export/import across reloads
	PhaseConfig   Phase = "config"   // host configuration
	PhaseEncode   Phase = "encode"   // rendering objects for tools
)

// Kind categorizes the error
type Kind string

const (
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindNotFound          Kind = "not_found"
	KindLoadFailure       Kind = "load_failure"
	KindMissingEntryPoint Kind = "missing_entry_point"
	KindHashCollision     Kind = "hash_collision"
	KindDuplicateName     Kind = "duplicate_name"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidInput      Kind = "invalid_input"
	KindVersionMismatch   Kind = "version_mismatch"
	KindInvalidData       Kind = "invalid_data"
	KindNotInitialized    Kind = "not_initialized"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrCapacityExceeded  = &Error{Phase: PhaseRegister, Kind: KindCapacityExceeded}
	ErrHashCollision     = &Error{Phase: PhaseRegister, Kind: KindHashCollision}
	ErrDuplicateName     = &Error{Phase: PhaseRegister, Kind: KindDuplicateName}
	ErrNotFound          = &Error{Phase: PhaseLookup, Kind: KindNotFound}
	ErrFieldIndex        = &Error{Phase: PhaseAccess, Kind: KindOutOfBounds}
	ErrLoadFailure       = &Error{Phase: PhaseLoad, Kind: KindLoadFailure}
	ErrMissingEntryPoint = &Error{Phase: PhaseLoad, Kind: KindMissingEntryPoint}
	ErrStateVersion      = &Error{Phase: PhaseState, Kind: KindVersionMismatch}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the descriptor type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// CapacityExceeded creates a fixed-storage exhaustion error
func CapacityExceeded(what string, limit int) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindCapacityExceeded,
		Detail: fmt.Sprintf("%s limit reached (%d)", what, limit),
		Value:  limit,
	}
}

// HashCollision creates an error for two distinct names sharing a hash
func HashCollision(name, existing string, hash uint32) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindHashCollision,
		Type:   name,
		Detail: fmt.Sprintf("hash 0x%08x already taken by %q", hash, existing),
		Value:  hash,
	}
}

// DuplicateName creates an error for a name already owned by another module
func DuplicateName(name string, owner, module uint16) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindDuplicateName,
		Type:   name,
		Detail: fmt.Sprintf("already registered by module %d, refused for module %d", owner, module),
		Value:  owner,
	}
}

// TypeMismatch creates a storage kind mismatch error
func TypeMismatch(phase Phase, path []string, typeName, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Type:   typeName,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a module loading error
func Load(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Detail: fmt.Sprintf("load %s", path),
		Cause:  cause,
	}
}

// StateVersion creates an error for a snapshot whose layout version differs
// from the one the importing module understands.
func StateVersion(module string, got, want uint32) *Error {
	return &Error{
		Phase:  PhaseState,
		Kind:   KindVersionMismatch,
		Type:   module,
		Detail: fmt.Sprintf("state version %d, want %d", got, want),
		Value:  got,
	}
}

// MissingExportsError is returned when a module binary lacks exports that
// the loader cannot do without.
type MissingExportsError struct {
	Module  string
	Exports []string
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_entry_point: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("module %s is missing %d required export(s):", e.Module, len(e.Exports)))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type. A MissingExportsError
// also matches ErrMissingEntryPoint.
func (e *MissingExportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingExportsError:
		return true
	case *Error:
		return t.Phase == PhaseLoad && t.Kind == KindMissingEntryPoint
	}
	return false
}
