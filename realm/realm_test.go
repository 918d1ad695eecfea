package realm

import (
	"testing"

	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/subscriber"
)

func TestNewDefaults(t *testing.T) {
	r := New()
	if r.ID() == "" {
		t.Fatal("empty ID")
	}
	if other := New(); other.ID() == r.ID() {
		t.Fatal("realms share an ID")
	}
	if r.State() != StateActive || !r.CanCallIn() {
		t.Fatalf("state = %v, CanCallIn = %v", r.State(), r.CanCallIn())
	}
	if New(WithID("fixed")).ID() != "fixed" {
		t.Fatal("WithID ignored")
	}
}

func TestEndToEndDelivery(t *testing.T) {
	r := New()

	var got []any
	r.Script().Subscribe("net", func(msg any, _ string) { got = append(got, msg) })
	if err := r.Script().Link(); err != nil {
		t.Fatal(err)
	}

	r.Channel("net").Publish("packet")
	r.Channel("fs").Publish("ignored")
	if len(got) != 1 || got[0] != "packet" {
		t.Fatalf("got = %v", got)
	}
}

func TestWithoutCallIns(t *testing.T) {
	r := New()
	delivered := 0
	r.Script().Subscribe("gc", func(any, string) { delivered++ })
	if err := r.Script().Link(); err != nil {
		t.Fatal(err)
	}

	r.WithoutCallIns(func() {
		if r.CanCallIn() {
			t.Fatal("CanCallIn inside WithoutCallIns")
		}
		r.WithoutCallIns(func() {})
		if r.CanCallIn() {
			t.Fatal("nested call reopened the gate")
		}
		r.Channel("gc").Publish(1)
	})
	if delivered != 0 {
		t.Fatal("published through a closed gate")
	}

	r.Channel("gc").Publish(2)
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
}

func TestSnapshotAndRelink(t *testing.T) {
	r := New()
	var got []any
	r.Script().Subscribe("net", func(msg any, _ string) { got = append(got, msg) })
	if err := r.Script().Link(); err != nil {
		t.Fatal(err)
	}
	c := r.Channel("net")

	data, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if r.State() != StateActive {
		t.Fatalf("state after snapshot = %v", r.State())
	}
	if c.IsLinked() || r.Registry().HasBridge() {
		t.Fatal("links survived the snapshot")
	}

	// Without a bridge nothing is delivered.
	r.Channel("net").Publish("lost")
	if len(got) != 0 {
		t.Fatalf("got = %v", got)
	}

	if err := r.Script().Link(); err != nil {
		t.Fatal(err)
	}
	r.Channel("net").Publish("found")
	if len(got) != 1 || got[0] != "found" {
		t.Fatalf("got = %v", got)
	}

	restored, err := Restore(data)
	if err != nil {
		t.Fatal(err)
	}
	idx, ok := restored.Registry().Lookup("net")
	if !ok {
		t.Fatal("name lost in restore")
	}
	if restored.Table().Count(idx) != 1 {
		t.Fatalf("restored count = %d", restored.Table().Count(idx))
	}
	if restored.Registry().HasBridge() {
		t.Fatal("restored realm has a bridge")
	}
}

func TestRestoreIntoTable(t *testing.T) {
	src := New()
	src.Script().Subscribe("a", func(any, string) {})
	data, err := src.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	table := subscriber.NewTable()
	r, err := Restore(data, WithTable(table))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count(0) != 1 {
		t.Fatalf("count = %d", table.Count(0))
	}
	if r.Table() != table {
		t.Fatal("WithTable ignored")
	}
}

func TestRestoreGarbage(t *testing.T) {
	if _, err := Restore([]byte{0xc1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose(t *testing.T) {
	r := New()
	r.Script().Subscribe("x", func(any, string) {})
	if err := r.Script().Link(); err != nil {
		t.Fatal(err)
	}
	c := r.Channel("x")

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if r.CanCallIn() || c.IsLinked() {
		t.Fatal("closed realm still callable")
	}
	if _, err := r.Snapshot(); err == nil {
		t.Fatal("snapshot of closed realm succeeded")
	}

	err := r.Close()
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindState {
		t.Fatalf("second Close = %v", err)
	}
}
