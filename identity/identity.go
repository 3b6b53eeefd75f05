// Package identity maps stable participant identifiers (phone numbers,
// account handles) to payable addresses on the payment rail.
//
// Resolution is a pure lookup from the engine's perspective: the resolver
// never mutates group or ledger state.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownParticipant is returned when no payable address is registered
// for a participant.
var ErrUnknownParticipant = errors.New("identity: unknown participant")

// Resolver looks up the payable address for a participant.
type Resolver interface {
	Resolve(ctx context.Context, participantID string) (string, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, participantID string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, participantID string) (string, error) {
	return f(ctx, participantID)
}

// Static is a map-backed resolver for tests, demos, and deployments where
// the participant roster is known up front.
type Static struct {
	mu        sync.RWMutex
	addresses map[string]string
}

// NewStatic creates a resolver seeded with the given participant->address
// mapping. The map may be nil.
func NewStatic(addresses map[string]string) *Static {
	s := &Static{addresses: make(map[string]string, len(addresses))}
	for p, a := range addresses {
		s.addresses[p] = a
	}
	return s
}

// Register adds or replaces the payable address for a participant.
func (s *Static) Register(participantID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addresses[participantID] = address
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, participantID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.addresses[participantID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}
	return addr, nil
}

// Passthrough resolves every participant to itself. Useful when participant
// identifiers already are payable addresses.
func Passthrough() Resolver {
	return ResolverFunc(func(_ context.Context, participantID string) (string, error) {
		return participantID, nil
	})
}
