package subscriber

import (
	"encoding/binary"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
)

// Size is the byte length of a table.
const Size = diagchan.MaxChannels * 4

// Table is the shared subscriber-count table.
type Table struct {
	buf []byte
}

// NewTable allocates a zeroed table.
func NewTable() *Table {
	return &Table{buf: make([]byte, Size)}
}

// NewTableOn creates a table over caller-owned memory. buf must be exactly
// Size bytes and stays shared: writes through either side are visible to both.
func NewTableOn(buf []byte) (*Table, error) {
	if len(buf) != Size {
		return nil, errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
			Detail("table backing must be %d bytes, got %d", Size, len(buf)).
			Build()
	}
	return &Table{buf: buf}, nil
}

// Len returns the number of counters.
func (t *Table) Len() int {
	return diagchan.MaxChannels
}

// Count returns the subscriber count at index. Out-of-range indices read as 0.
func (t *Table) Count(index uint32) uint32 {
	if index >= diagchan.MaxChannels {
		return 0
	}
	off := index * 4
	return binary.LittleEndian.Uint32(t.buf[off : off+4])
}

// Set overwrites the counter at index.
func (t *Table) Set(index, value uint32) error {
	if index >= diagchan.MaxChannels {
		return errors.OutOfBounds(errors.PhaseRegistry, int(index), diagchan.MaxChannels)
	}
	off := index * 4
	binary.LittleEndian.PutUint32(t.buf[off:off+4], value)
	return nil
}

// Increment adds one subscriber at index and returns the new count.
func (t *Table) Increment(index uint32) (uint32, error) {
	if index >= diagchan.MaxChannels {
		return 0, errors.OutOfBounds(errors.PhaseRegistry, int(index), diagchan.MaxChannels)
	}
	n := t.Count(index) + 1
	_ = t.Set(index, n)
	return n, nil
}

// Decrement removes one subscriber at index and returns the new count.
// The count never drops below zero.
func (t *Table) Decrement(index uint32) (uint32, error) {
	if index >= diagchan.MaxChannels {
		return 0, errors.OutOfBounds(errors.PhaseRegistry, int(index), diagchan.MaxChannels)
	}
	n := t.Count(index)
	if n == 0 {
		return 0, nil
	}
	n--
	_ = t.Set(index, n)
	return n, nil
}

// Bytes returns the backing memory itself, not a copy.
func (t *Table) Bytes() []byte {
	return t.buf
}

// Serialize returns a copy of the raw table bytes.
func (t *Table) Serialize() []byte {
	out := make([]byte, len(t.buf))
	copy(out, t.buf)
	return out
}

// Deserialize overwrites the table with data produced by Serialize.
func (t *Table) Deserialize(data []byte) error {
	if len(data) != len(t.buf) {
		return errors.New(errors.PhaseRestore, errors.KindInvalidData).
			Detail("subscriber table is %d bytes, snapshot holds %d", len(t.buf), len(data)).
			Build()
	}
	copy(t.buf, data)
	return nil
}

// Reset zeroes every counter.
func (t *Table) Reset() {
	clear(t.buf)
}
