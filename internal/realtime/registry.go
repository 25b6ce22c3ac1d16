// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/metrics"
)

// registryShards spreads room lock contention. Rooms hash to a shard, so
// traffic on one hot room never serializes joins on unrelated rooms.
const registryShards = 32

// Registry tracks which sessions are members of which rooms. All operations
// are idempotent: double joins, double leaves, and leaves of unknown rooms
// are no-ops.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	rooms map[string]map[uint64]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[uint64]struct{})
	}
	return r
}

func (r *Registry) shardFor(roomID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return &r.shards[h.Sum32()%registryShards]
}

// Join adds the session to the room. Returns true if the membership is new.
func (r *Registry) Join(roomID string, sessionID uint64) bool {
	shard := r.shardFor(roomID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	members, ok := shard.rooms[roomID]
	if !ok {
		members = make(map[uint64]struct{})
		shard.rooms[roomID] = members
		metrics.RoomsActive.Inc()
	}
	if _, present := members[sessionID]; present {
		return false
	}
	members[sessionID] = struct{}{}
	return true
}

// Leave removes the session from the room. The last member leaving removes
// the room itself. Returns true if a membership was actually removed.
func (r *Registry) Leave(roomID string, sessionID uint64) bool {
	shard := r.shardFor(roomID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	members, ok := shard.rooms[roomID]
	if !ok {
		return false
	}
	if _, present := members[sessionID]; !present {
		return false
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(shard.rooms, roomID)
		metrics.RoomsActive.Dec()
	}
	return true
}

// LeaveAll removes the session from every room it is a member of and returns
// the rooms it left.
func (r *Registry) LeaveAll(sessionID uint64) []string {
	var left []string
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		for roomID, members := range shard.rooms {
			if _, present := members[sessionID]; !present {
				continue
			}
			delete(members, sessionID)
			if len(members) == 0 {
				delete(shard.rooms, roomID)
				metrics.RoomsActive.Dec()
			}
			left = append(left, roomID)
		}
		shard.mu.Unlock()
	}
	sort.Strings(left)
	return left
}

// MembersOf returns the session ids currently in the room, sorted.
func (r *Registry) MembersOf(roomID string) []uint64 {
	shard := r.shardFor(roomID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	members := shard.rooms[roomID]
	if len(members) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rooms returns the number of rooms with at least one member.
func (r *Registry) Rooms() int {
	total := 0
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.RLock()
		total += len(shard.rooms)
		shard.mu.RUnlock()
	}
	return total
}
