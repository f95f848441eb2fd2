package room

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestApplyHostAction(t *testing.T) {
	hostID := uuid.New()
	listenerID := uuid.New()

	newRoom := func() *Room {
		r := New("ABC123", hostID, "alice", 3)
		r.AddListener(listenerID, "bob")
		return r
	}

	t.Run("non-host never mutates state", func(t *testing.T) {
		r := newRoom()

		_, err := r.ApplyHostAction(listenerID, ActionPlayPause, StateDelta{
			IsPlaying:   boolPtr(true),
			CurrentTime: floatPtr(10),
		})
		if !errors.Is(err, ErrNotHost) {
			t.Fatalf("expected ErrNotHost, got %v", err)
		}

		if got := r.Snapshot(); got.IsPlaying {
			t.Fatalf("state mutated by non-host: %+v", got)
		}
	})

	t.Run("playPause merges playing flag and clock", func(t *testing.T) {
		r := newRoom()

		applied, err := r.ApplyHostAction(hostID, ActionPlayPause, StateDelta{
			IsPlaying:   boolPtr(true),
			CurrentTime: floatPtr(42.5),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if applied.IsPlaying == nil || !*applied.IsPlaying {
			t.Fatal("applied delta lost isPlaying")
		}

		got := r.Snapshot()
		if !got.IsPlaying || got.CurrentTime != 42.5 {
			t.Fatalf("unexpected state: %+v", got)
		}
	})

	t.Run("changeTrack leaves clock and playing flag alone", func(t *testing.T) {
		r := newRoom()

		if _, err := r.ApplyHostAction(hostID, ActionSeek, StateDelta{CurrentTime: floatPtr(30)}); err != nil {
			t.Fatalf("seek: %v", err)
		}

		if _, err := r.ApplyHostAction(hostID, ActionChangeTrack, StateDelta{TrackIndex: intPtr(2)}); err != nil {
			t.Fatalf("changeTrack: %v", err)
		}

		got := r.Snapshot()
		if got.TrackIndex != 2 {
			t.Fatalf("track index not merged: %+v", got)
		}
		if got.CurrentTime != 30 {
			t.Fatalf("changeTrack touched the clock: %+v", got)
		}
	})

	t.Run("toggleLoop merges only the loop flag", func(t *testing.T) {
		r := newRoom()

		if _, err := r.ApplyHostAction(hostID, ActionToggleLoop, StateDelta{IsLooping: boolPtr(true)}); err != nil {
			t.Fatalf("toggleLoop: %v", err)
		}

		got := r.Snapshot()
		if !got.IsLooping {
			t.Fatalf("loop flag not merged: %+v", got)
		}
		if got.IsPlaying || got.CurrentTime != 0 || got.TrackIndex != 0 {
			t.Fatalf("toggleLoop touched unrelated fields: %+v", got)
		}
	})

	t.Run("track index out of range is rejected", func(t *testing.T) {
		r := newRoom()

		for _, index := range []int{-1, 3, 99} {
			_, err := r.ApplyHostAction(hostID, ActionChangeTrack, StateDelta{TrackIndex: intPtr(index)})
			if index < 0 {
				// Negative indices are always malformed or out of range.
				if err == nil {
					t.Fatalf("index %d accepted", index)
				}
				continue
			}
			if !errors.Is(err, ErrTrackOutOfRange) {
				t.Fatalf("index %d: expected ErrTrackOutOfRange, got %v", index, err)
			}
		}

		if got := r.Snapshot(); got.TrackIndex != 0 {
			t.Fatalf("rejected action mutated state: %+v", got)
		}
	})

	t.Run("zero track count disables the bounds check", func(t *testing.T) {
		r := New("XYZ789", hostID, "alice", 0)

		if _, err := r.ApplyHostAction(hostID, ActionChangeTrack, StateDelta{TrackIndex: intPtr(99)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing fields are malformed", func(t *testing.T) {
		r := newRoom()

		cases := []struct {
			action Action
			delta  StateDelta
		}{
			{ActionPlayPause, StateDelta{IsPlaying: boolPtr(true)}},
			{ActionPlayPause, StateDelta{CurrentTime: floatPtr(1)}},
			{ActionChangeTrack, StateDelta{}},
			{ActionSeek, StateDelta{}},
			{ActionSeek, StateDelta{CurrentTime: floatPtr(-1)}},
			{ActionToggleLoop, StateDelta{}},
		}

		for _, c := range cases {
			if _, err := r.ApplyHostAction(hostID, c.action, c.delta); !errors.Is(err, ErrMalformedAction) {
				t.Fatalf("%s %+v: expected ErrMalformedAction, got %v", c.action, c.delta, err)
			}
		}
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		r := newRoom()

		if _, err := r.ApplyHostAction(hostID, Action("shuffle"), StateDelta{}); !errors.Is(err, ErrUnknownAction) {
			t.Fatalf("expected ErrUnknownAction, got %v", err)
		}
	})
}

func TestMembership(t *testing.T) {
	hostID := uuid.New()
	listenerID := uuid.New()

	t.Run("creator is host", func(t *testing.T) {
		r := New("ABC123", hostID, "alice", 0)

		members := r.Members()
		if len(members) != 1 {
			t.Fatalf("expected 1 member, got %d", len(members))
		}
		if members[0].Role != RoleHost || members[0].ConnID != hostID {
			t.Fatalf("unexpected host member: %+v", members[0])
		}
	})

	t.Run("join is idempotent per connection", func(t *testing.T) {
		r := New("ABC123", hostID, "alice", 0)

		if !r.AddListener(listenerID, "bob") {
			t.Fatal("first join should change membership")
		}
		if r.AddListener(listenerID, "bob") {
			t.Fatal("second join should be a no-op")
		}

		if got := len(r.Members()); got != 2 {
			t.Fatalf("expected 2 members, got %d", got)
		}
	})

	t.Run("members are listed in join order", func(t *testing.T) {
		r := New("ABC123", hostID, "alice", 0)
		second := uuid.New()
		r.AddListener(listenerID, "bob")
		r.AddListener(second, "carol")

		members := r.Members()
		if members[0].ConnID != hostID || members[1].ConnID != listenerID || members[2].ConnID != second {
			t.Fatalf("join order not preserved: %+v", members)
		}
	})

	t.Run("remove drops only the named member", func(t *testing.T) {
		r := New("ABC123", hostID, "alice", 0)
		r.AddListener(listenerID, "bob")

		if !r.RemoveMember(listenerID) {
			t.Fatal("expected removal to succeed")
		}
		if r.RemoveMember(listenerID) {
			t.Fatal("second removal should be a no-op")
		}
		if !r.HasMember(hostID) {
			t.Fatal("host should remain")
		}
	})
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()

		if len(code) != CodeLength {
			t.Fatalf("code %q has wrong length", code)
		}

		for _, r := range code {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				t.Fatalf("code %q contains invalid rune %q", code, r)
			}
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  ab12cd "); got != "AB12CD" {
		t.Fatalf("NormalizeCode: got %q", got)
	}
}
