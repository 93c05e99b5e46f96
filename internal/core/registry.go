package core

import (
	"sync"

	"github.com/samber/lo"

	"github.com/vovakirdan/dsolution-crm/internal/metrics"
)

// Registry maps identities to their live channels.
//
// A channel belongs to at most one identity; an identity may hold many
// channels. The registry owns this membership: all mutation goes through
// Register and Unregister, and readers always get a snapshot.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]map[string]Channel // identity -> channel id -> channel
	identityOf map[string]string             // channel id -> identity
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]map[string]Channel),
		identityOf: make(map[string]string),
	}
}

// Register binds ch to identity. Registering the same pair twice is a no-op;
// registering ch under a new identity moves it.
func (r *Registry) Register(identity string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ch.ID()
	if prev, ok := r.identityOf[id]; ok && prev != identity {
		r.removeLocked(prev, id)
	}

	set, ok := r.byIdentity[identity]
	if !ok {
		set = make(map[string]Channel)
		r.byIdentity[identity] = set
	}
	set[id] = ch
	r.identityOf[id] = identity

	r.reportLocked()
}

// Unregister removes ch from whichever identity holds it.
// It reports whether the channel was registered.
func (r *Registry) Unregister(ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ch.ID()
	identity, ok := r.identityOf[id]
	if !ok {
		return false
	}
	r.removeLocked(identity, id)
	r.reportLocked()
	return true
}

// ChannelsFor returns a snapshot of the live channels for identity.
func (r *Registry) ChannelsFor(identity string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.byIdentity[identity])
}

// IdentityOf returns the identity ch is bound to.
func (r *Registry) IdentityOf(ch Channel) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identityOf[ch.ID()]
	return identity, ok
}

// Len returns the number of live channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.identityOf)
}

// Identities returns the number of identities with at least one live channel.
func (r *Registry) Identities() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byIdentity)
}

func (r *Registry) removeLocked(identity, channelID string) {
	delete(r.identityOf, channelID)
	if set, ok := r.byIdentity[identity]; ok {
		delete(set, channelID)
		// drop empty sets so identities do not accumulate
		if len(set) == 0 {
			delete(r.byIdentity, identity)
		}
	}
}

func (r *Registry) reportLocked() {
	metrics.RelayChannels.Set(float64(len(r.identityOf)))
	metrics.RelayIdentities.Set(float64(len(r.byIdentity)))
}
