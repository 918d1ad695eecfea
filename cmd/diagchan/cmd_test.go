package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/internal/config"
	"github.com/wippyai/diagchan/internal/scenario"
	"github.com/wippyai/diagchan/subscriber"
)

type fakeSource struct {
	stats     scenario.Stats
	emitted   []string
	emitErr   error
	snapshots int
}

func (f *fakeSource) Stats(context.Context) (scenario.Stats, error) { return f.stats, nil }

func (f *fakeSource) Emit(_ context.Context, name string) error {
	f.emitted = append(f.emitted, name)
	return f.emitErr
}

func (f *fakeSource) Snapshot(context.Context) ([]byte, error) {
	f.snapshots++
	return []byte{1, 2, 3}, nil
}

func testSnapshot(t *testing.T) *channel.Snapshot {
	t.Helper()
	table := subscriber.NewTable()
	if err := table.Set(1, 3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	return &channel.Snapshot{
		Subscribers: table.Serialize(),
		Names:       []string{"http.request", "fs.read"},
		Version:     channel.SnapshotVersion,
	}
}

func TestPrintSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		all     bool
		want    []string
		notWant []string
	}{
		{
			name:    "subscribed only",
			want:    []string{"Snapshot v1, 2 channels", "fs.read", "3"},
			notWant: []string{"http.request"},
		},
		{
			name: "all channels",
			all:  true,
			want: []string{"http.request", "fs.read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printSnapshot(&buf, testSnapshot(t), tt.all); err != nil {
				t.Fatalf("printSnapshot: %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Fatalf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Fatalf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPrintSnapshotBadTable(t *testing.T) {
	snap := testSnapshot(t)
	snap.Subscribers = snap.Subscribers[:8]
	if err := printSnapshot(&bytes.Buffer{}, snap, true); err == nil {
		t.Fatal("expected error for truncated table")
	}
}

func TestTakeSnapshot(t *testing.T) {
	src := &fakeSource{}
	channels := []config.ChannelConfig{{Name: "a"}, {Name: "b"}}

	data, err := takeSnapshot(context.Background(), src, channels, 2)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	if len(data) != 3 || src.snapshots != 1 {
		t.Fatalf("data=%v snapshots=%d", data, src.snapshots)
	}
	if got := strings.Join(src.emitted, ","); got != "a,b,a,b" {
		t.Fatalf("emitted %q", got)
	}
}

func TestTakeSnapshotEmitError(t *testing.T) {
	src := &fakeSource{emitErr: scenario.ErrUnknownChannel}
	_, err := takeSnapshot(context.Background(), src, []config.ChannelConfig{{Name: "x"}}, 1)
	if !errors.Is(err, scenario.ErrUnknownChannel) {
		t.Fatalf("err = %v, want ErrUnknownChannel", err)
	}
	if src.snapshots != 0 {
		t.Fatal("snapshot taken after failed emit")
	}
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestMonitorModel(t *testing.T) {
	src := &fakeSource{stats: scenario.Stats{
		RealmID: "realm-1",
		Channels: []scenario.ChannelStats{
			{Name: "http.request", Index: 0, Subscribers: 2, Linked: true, Published: 5, Received: 10},
			{Name: "fs.read", Index: 1, Tracing: true, Traced: 4},
		},
	}}
	m := newMonitorModel(src)

	m.Update(m.fetch())
	if rows := m.table.Rows(); len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if row := m.table.Rows()[1]; row[6] != "4" {
		t.Fatalf("traced column = %q", row[6])
	}
	if !strings.Contains(m.View(), "realm-1") {
		t.Fatal("view missing realm id")
	}

	_, cmd := m.Update(keyMsg('e'))
	if cmd == nil {
		t.Fatal("emit key returned no command")
	}
	m.Update(cmd())
	if len(src.emitted) != 1 || src.emitted[0] != "http.request" {
		t.Fatalf("emitted %v", src.emitted)
	}
	if !strings.Contains(m.status, "http.request") {
		t.Fatalf("status = %q", m.status)
	}

	_, cmd = m.Update(keyMsg('s'))
	m.Update(cmd())
	if src.snapshots != 1 || !strings.Contains(m.status, "3 bytes") {
		t.Fatalf("snapshots=%d status=%q", src.snapshots, m.status)
	}

	_, cmd = m.Update(keyMsg('q'))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestMonitorModelEmitError(t *testing.T) {
	src := &fakeSource{emitErr: errors.New("boom")}
	m := newMonitorModel(src)
	m.Update(statsMsg{stats: scenario.Stats{Channels: []scenario.ChannelStats{{Name: "a"}}}})

	_, cmd := m.Update(keyMsg('e'))
	m.Update(cmd())
	if m.err == nil || !strings.Contains(m.View(), "boom") {
		t.Fatalf("err = %v", m.err)
	}
}
