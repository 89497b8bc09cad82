package loader

import "github.com/wippyai/hotreflect/typedesc"

// State is a tracked module's position in the reload sequence.
type State uint8

const (
	Unloaded State = iota
	Loaded
	ChangeDetected
	Unloading
	Loading
	Registering
	Restoring
	// FailedLoad holds until the module file changes again.
	FailedLoad
)

var stateNames = [...]string{
	Unloaded:       "unloaded",
	Loaded:         "loaded",
	ChangeDetected: "change_detected",
	Unloading:      "unloading",
	Loading:        "loading",
	Registering:    "registering",
	Restoring:      "restoring",
	FailedLoad:     "failed_load",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Event reports one state transition of a tracked module.
type Event struct {
	Err    error
	Module string
	Path   string
	ID     typedesc.ModuleID
	From   State
	To     State
}

// Observer receives module state transitions.
type Observer interface {
	OnModuleEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnModuleEvent(e Event) { f(e) }
