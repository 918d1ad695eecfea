package guest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/errors"
)

func newGuest(t *testing.T) *Guest {
	t.Helper()
	ctx := context.Background()
	g, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { g.Close(ctx) })
	return g
}

func TestEncodeULEB128(t *testing.T) {
	tests := []struct {
		input    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{4096, []byte{0x80, 0x20}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}

	for _, tc := range tests {
		if got := encodeULEB128(tc.input); !bytes.Equal(got, tc.expected) {
			t.Errorf("encodeULEB128(%d) = %x, want %x", tc.input, got, tc.expected)
		}
	}
}

func TestGuestModuleCompiles(t *testing.T) {
	wasm := guestModule()
	if !bytes.HasPrefix(wasm, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatal("expected valid WASM header")
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		t.Fatalf("failed to compile guest module: %v", err)
	}
	defer compiled.Close(ctx)

	exports := compiled.ExportedFunctions()
	for _, name := range []string{"resolve", "subscribe", "unsubscribe", "count"} {
		if _, ok := exports[name]; !ok {
			t.Errorf("missing export %q", name)
		}
	}
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		t.Error("missing memory export")
	}
}

func TestCountersAliasTable(t *testing.T) {
	ctx := context.Background()
	g := newGuest(t)
	table := g.Table()

	for i := 1; i <= 3; i++ {
		n, err := g.Subscribe(ctx, 5)
		if err != nil {
			t.Fatal(err)
		}
		if n != uint32(i) {
			t.Fatalf("Subscribe = %d, want %d", n, i)
		}
	}
	if got := table.Count(5); got != 3 {
		t.Fatalf("table.Count(5) = %d, want 3", got)
	}

	// Writes from the native side are visible to the guest.
	if err := table.Set(9, 42); err != nil {
		t.Fatal(err)
	}
	if n, err := g.Count(ctx, 9); err != nil || n != 42 {
		t.Fatalf("Count(9) = %d, %v", n, err)
	}
}

func TestUnsubscribeSaturates(t *testing.T) {
	ctx := context.Background()
	g := newGuest(t)

	if _, err := g.Subscribe(ctx, 0); err != nil {
		t.Fatal(err)
	}
	for _, want := range []uint32{0, 0, 0} {
		n, err := g.Unsubscribe(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Fatalf("Unsubscribe = %d, want %d", n, want)
		}
	}
	if g.Table().Count(0) != 0 {
		t.Fatal("counter went below zero")
	}
}

func TestCounterIndexOutOfRange(t *testing.T) {
	g := newGuest(t)
	_, err := g.Subscribe(context.Background(), diagchan.MaxChannels)
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindOutOfBounds {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestResolveThroughRegistry(t *testing.T) {
	ctx := context.Background()
	g := newGuest(t)
	reg := channel.NewRegistry(g.Table())
	g.Bind(reg)

	a, err := g.Resolve(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Resolve(ctx, "beta")
	if err != nil {
		t.Fatal(err)
	}
	again, err := g.Resolve(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if a == b || a != again {
		t.Fatalf("a=%d b=%d again=%d", a, b, again)
	}
	if idx, ok := reg.Lookup("beta"); !ok || idx != b {
		t.Fatalf("registry Lookup(beta) = %d, %v", idx, ok)
	}

	if _, err := g.Subscribe(ctx, b); err != nil {
		t.Fatal(err)
	}
	if !reg.Channel("beta").HasSubscribers() {
		t.Fatal("guest subscription not visible to the native channel")
	}
	if reg.Channel("alpha").HasSubscribers() {
		t.Fatal("alpha reports subscribers")
	}
}

func TestResolveUnbound(t *testing.T) {
	g := newGuest(t)
	_, err := g.Resolve(context.Background(), "x")
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestResolveNameTooLong(t *testing.T) {
	g := newGuest(t)
	g.Bind(channel.NewRegistry(g.Table()))
	_, err := g.Resolve(context.Background(), strings.Repeat("x", MaxNameLen+1))
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindInvalidInput {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestResolveCapacityPanics(t *testing.T) {
	g := newGuest(t)
	reg := channel.NewRegistry(g.Table())
	g.Bind(reg)
	for i := 0; i < diagchan.MaxChannels; i++ {
		reg.ChannelIndex(fmt.Sprintf("ch-%d", i))
	}

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.IsCapacity(err) {
			t.Fatalf("expected capacity panic, got %v", rec)
		}
	}()
	g.Resolve(context.Background(), "overflow")
	t.Fatal("Resolve did not panic")
}
