package module

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/hotreflect/errors"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("module: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Snapshot is state handed from a module to its replacement. The loader
// carries it between unload and fixup without looking inside.
type Snapshot struct {
	Module  string `cbor:"module"`
	Data    []byte `cbor:"data"`
	Version uint32 `cbor:"version"`
}

// EncodeState serializes v as the state of the named module at the given
// state version.
func EncodeState(name string, version uint32, v any) (*Snapshot, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.New(errors.PhaseState, errors.KindInvalidData).
			Type(name).
			Detail("encode state").
			Cause(err).
			Build()
	}
	return &Snapshot{Module: name, Version: version, Data: data}, nil
}

// Check fails with errors.ErrStateVersion unless the snapshot was written at
// version want.
func (s *Snapshot) Check(want uint32) error {
	if s.Version != want {
		return errors.StateVersion(s.Module, s.Version, want)
	}
	return nil
}

// Decode validates the version and unmarshals the state into v.
func (s *Snapshot) Decode(want uint32, v any) error {
	if err := s.Check(want); err != nil {
		return err
	}
	if err := cbor.Unmarshal(s.Data, v); err != nil {
		return errors.New(errors.PhaseState, errors.KindInvalidData).
			Type(s.Module).
			Detail("decode state").
			Cause(err).
			Build()
	}
	return nil
}

// Marshal encodes the snapshot itself, for hosts that keep state outside the
// process between runs.
func (s *Snapshot) Marshal() ([]byte, error) {
	return encMode.Marshal(s)
}

// UnmarshalSnapshot decodes a snapshot written by Marshal.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("module: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
