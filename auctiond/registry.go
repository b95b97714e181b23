package main

import (
	"fmt"
	"sync"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// memRegistry is the in-memory asset registry: it owns the item-to-holder
// custody map. Both operations are atomic under one lock, matching the
// ledger's assumption that registry calls succeed or fail as a unit.
type memRegistry struct {
	mu      sync.Mutex
	custody map[core.ItemID]core.Address
}

func newMemRegistry() *memRegistry {
	return &memRegistry{custody: make(map[core.ItemID]core.Address)}
}

// MintTo implements core.AssetRegistry.
func (r *memRegistry) MintTo(custodian core.Address, id core.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.custody[id]; ok {
		return fmt.Errorf("item %d already exists", id)
	}
	if custodian.IsZero() {
		return fmt.Errorf("item %d: empty custodian", id)
	}
	r.custody[id] = custodian
	return nil
}

// Transfer implements core.AssetRegistry.
func (r *memRegistry) Transfer(from, to core.Address, id core.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	holder, ok := r.custody[id]
	if !ok {
		return fmt.Errorf("item %d does not exist", id)
	}
	if holder != from {
		return fmt.Errorf("item %d held by %s, not %s", id, holder, from)
	}
	if to.IsZero() {
		return fmt.Errorf("item %d: empty recipient", id)
	}
	r.custody[id] = to
	return nil
}

// HolderOf returns the current custody holder of an item.
func (r *memRegistry) HolderOf(id core.ItemID) (core.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holder, ok := r.custody[id]
	return holder, ok
}

func (r *memRegistry) snapshotCustody() map[uint64]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint64]string, len(r.custody))
	for id, holder := range r.custody {
		out[uint64(id)] = string(holder)
	}
	return out
}

func (r *memRegistry) restoreCustody(in map[uint64]string) {
	restored := make(map[core.ItemID]core.Address, len(in))
	for id, holder := range in {
		restored[core.ItemID(id)] = core.Address(holder)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custody = restored
}

// memMetadata is the in-memory metadata store for item descriptor strings.
type memMetadata struct {
	mu   sync.Mutex
	refs map[core.ItemID]string
}

func newMemMetadata() *memMetadata {
	return &memMetadata{refs: make(map[core.ItemID]string)}
}

// Set implements core.MetadataStore.
func (m *memMetadata) Set(id core.ItemID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[id] = ref
	return nil
}

// Get implements core.MetadataStore.
func (m *memMetadata) Get(id core.ItemID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[id]
	if !ok {
		return "", fmt.Errorf("no metadata for item %d", id)
	}
	return ref, nil
}

func (m *memMetadata) snapshotRefs() map[uint64]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]string, len(m.refs))
	for id, ref := range m.refs {
		out[uint64(id)] = ref
	}
	return out
}

func (m *memMetadata) restoreRefs(in map[uint64]string) {
	restored := make(map[core.ItemID]string, len(in))
	for id, ref := range in {
		restored[core.ItemID(id)] = ref
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs = restored
}
