// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()

	if !r.Join("video:1", 10) {
		t.Error("first join should report a new membership")
	}
	if r.Join("video:1", 10) {
		t.Error("second join of the same session must be an idempotent no-op")
	}

	members := r.MembersOf("video:1")
	if len(members) != 1 || members[0] != 10 {
		t.Errorf("MembersOf = %v, want [10]", members)
	}

	if !r.Leave("video:1", 10) {
		t.Error("leave of a joined session should report a removal")
	}
	if r.Leave("video:1", 10) {
		t.Error("second leave must be an idempotent no-op")
	}
	if r.Leave("video:never-joined", 10) {
		t.Error("leave of an unknown room must be a no-op, not an error")
	}

	if members := r.MembersOf("video:1"); members != nil {
		t.Errorf("MembersOf after leave = %v, want nil", members)
	}
}

func TestRegistryMembersSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []uint64{30, 10, 20} {
		r.Join("video:1", id)
	}

	members := r.MembersOf("video:1")
	want := []uint64{10, 20, 30}
	if len(members) != len(want) {
		t.Fatalf("MembersOf = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Errorf("MembersOf = %v, want sorted %v", members, want)
			break
		}
	}
}

func TestRegistryLeaveAllPreventsLeak(t *testing.T) {
	r := NewRegistry()

	// One session joins many rooms, another stays behind in some of them.
	rooms := make([]string, 50)
	for i := range rooms {
		rooms[i] = fmt.Sprintf("video:%d", i)
		r.Join(rooms[i], 1)
		if i%2 == 0 {
			r.Join(rooms[i], 2)
		}
	}

	left := r.LeaveAll(1)
	if len(left) != len(rooms) {
		t.Errorf("LeaveAll left %d rooms, want %d", len(left), len(rooms))
	}

	for _, room := range rooms {
		for _, member := range r.MembersOf(room) {
			if member == 1 {
				t.Fatalf("session 1 still a member of %s after LeaveAll", room)
			}
		}
	}

	// Rooms with a remaining member survive, the rest are gone.
	if got, want := r.Rooms(), 25; got != want {
		t.Errorf("Rooms() = %d after LeaveAll, want %d", got, want)
	}

	if left := r.LeaveAll(1); left != nil {
		t.Errorf("second LeaveAll = %v, want nil", left)
	}
}

func TestRegistryEmptyRoomIsRemoved(t *testing.T) {
	r := NewRegistry()
	r.Join("video:1", 1)
	r.Join("video:2", 1)

	if got := r.Rooms(); got != 2 {
		t.Fatalf("Rooms() = %d, want 2", got)
	}
	r.Leave("video:1", 1)
	if got := r.Rooms(); got != 1 {
		t.Errorf("Rooms() = %d after last member left, want 1", got)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for session := uint64(1); session <= 20; session++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				room := fmt.Sprintf("video:%d", i%7)
				r.Join(room, id)
				r.MembersOf(room)
				if i%3 == 0 {
					r.Leave(room, id)
				}
			}
			r.LeaveAll(id)
		}(session)
	}
	wg.Wait()

	if got := r.Rooms(); got != 0 {
		t.Errorf("Rooms() = %d after all sessions left, want 0", got)
	}
}
