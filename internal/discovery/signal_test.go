package discovery

import (
	"testing"

	"github.com/danmuck/framectl/internal/testutil/testlog"
)

func TestStaticFiresImmediately(t *testing.T) {
	testlog.Start(t)

	var target string
	var ok bool
	stop := Static("conn.abc").Watch(func(tgt string, bound bool) {
		target, ok = tgt, bound
	})
	defer stop()

	if !ok || target != "conn.abc" {
		t.Fatalf("static signal did not fire immediately: %q %v", target, ok)
	}
}

func TestManualNotifiesCurrentStateAndChanges(t *testing.T) {
	testlog.Start(t)

	m := NewManual()
	m.Set("conn.first")

	type update struct {
		target string
		ok     bool
	}
	var got []update
	stop := m.Watch(func(tgt string, ok bool) {
		got = append(got, update{tgt, ok})
	})

	m.Set("conn.second")
	m.Clear()
	stop()
	m.Set("conn.after-stop")

	want := []update{
		{"conn.first", true},
		{"conn.second", true},
		{"", false},
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected updates: %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("update %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestManualSupportsMultipleWatchers(t *testing.T) {
	testlog.Start(t)

	m := NewManual()
	var a, b int
	stopA := m.Watch(func(string, bool) { a++ })
	stopB := m.Watch(func(string, bool) { b++ })

	m.Set("conn.x")
	stopA()
	m.Set("conn.y")
	stopB()

	if a != 2 { // immediate + first set
		t.Fatalf("watcher a saw %d updates, want 2", a)
	}
	if b != 3 { // immediate + both sets
		t.Fatalf("watcher b saw %d updates, want 3", b)
	}
}
