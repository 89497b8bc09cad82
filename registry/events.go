package registry

import "github.com/wippyai/hotreflect/typedesc"

// EventType identifies a type lifecycle change.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventTombstoned
)

func (e EventType) String() string {
	switch e {
	case EventRegistered:
		return "registered"
	case EventTombstoned:
		return "tombstoned"
	}
	return "unknown"
}

// Event describes one registration or tombstoning.
type Event struct {
	Name   string
	ID     typedesc.TypeID
	Module typedesc.ModuleID
	Type   EventType
}

// Observer receives type lifecycle events.
type Observer interface {
	OnTypeEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnTypeEvent(e Event) { f(e) }

// Subscribe adds an observer.
func (r *Registry) Subscribe(o Observer) {
	if o != nil {
		r.observers = append(r.observers, o)
	}
}

func (r *Registry) notify(e Event) {
	for _, o := range r.observers {
		o.OnTypeEvent(e)
	}
}
