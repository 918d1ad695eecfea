package channel

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/subscriber"
)

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

// Snapshot is the persistent part of a registry: subscriber counts and the
// channel names in index order. Links never survive a snapshot.
type Snapshot struct {
	Subscribers []byte   `msgpack:"subscribers"`
	Names       []string `msgpack:"names"`
	Version     int      `msgpack:"version"`
}

type snapshotWire Snapshot

// MarshalBinary encodes the snapshot with msgpack.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	data, err := msgpack.Marshal((*snapshotWire)(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "encode snapshot")
	}
	return data, nil
}

// UnmarshalBinary decodes a snapshot produced by MarshalBinary.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if err := msgpack.Unmarshal(data, (*snapshotWire)(s)); err != nil {
		return errors.Wrap(errors.PhaseRestore, errors.KindInvalidData, err, "decode snapshot")
	}
	return nil
}

// Validate checks that the snapshot can be restored.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return errors.New(errors.PhaseRestore, errors.KindInvalidData).
			Detail("unsupported snapshot version %d", s.Version).
			Value(s.Version).
			Build()
	}
	if len(s.Subscribers) != subscriber.Size {
		return errors.New(errors.PhaseRestore, errors.KindInvalidData).
			Detail("subscriber table is %d bytes, want %d", len(s.Subscribers), subscriber.Size).
			Build()
	}
	if len(s.Names) > diagchan.MaxChannels {
		return errors.New(errors.PhaseRestore, errors.KindInvalidData).
			Detail("%d channel names exceed the limit of %d", len(s.Names), diagchan.MaxChannels).
			Build()
	}
	seen := make(map[string]struct{}, len(s.Names))
	for _, name := range s.Names {
		if _, dup := seen[name]; dup {
			return errors.New(errors.PhaseRestore, errors.KindInvalidData).
				Channel(name).
				Detail("duplicate channel name").
				Build()
		}
		seen[name] = struct{}{}
	}
	return nil
}

// PrepareForSerialization captures the registry and then drops its transient
// state: the bridge, every link and the channel objects. Indices and counts
// stay in place.
func (r *Registry) PrepareForSerialization() *Snapshot {
	s := &Snapshot{
		Version:     SnapshotVersion,
		Subscribers: r.table.Serialize(),
		Names:       r.Names(),
	}

	r.bridge = nil
	r.detach()

	Logger().Debug("registry prepared for serialization")
	return s
}

// Restore replaces counts and names with the snapshot's. Any bridge, link or
// channel object held before is discarded. Restore leaves the registry
// untouched when the snapshot is invalid.
func (r *Registry) Restore(s *Snapshot) error {
	if s == nil {
		return errors.InvalidInput(errors.PhaseRestore, "nil snapshot")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := r.table.Deserialize(s.Subscribers); err != nil {
		return err
	}

	r.bridge = nil
	r.detach()

	r.indices = make(map[string]uint32, len(s.Names))
	r.names = make([]string, len(s.Names))
	for i, name := range s.Names {
		r.indices[name] = uint32(i)
		r.names[i] = name
	}

	Logger().Debug("registry restored")
	return nil
}
