package sse

import (
	"context"
	"sync"

	"ms-onboarding/internal/models"
)

// AssignmentEventEmitter manages SSE connections and broadcasts raffle
// assignment results to admin dashboards. Subscribers only ever receive
// results a committed transaction already produced; the winner is never
// computed client-side.
type AssignmentEventEmitter struct {
	// Per-section subscribers - key: sectionID
	sectionClients     map[string][]chan models.AssignmentResult
	sectionClientMutex sync.RWMutex

	// Market-wide subscribers
	allClients     []chan models.AssignmentResult
	allClientMutex sync.RWMutex
}

// NewAssignmentEventEmitter creates a new SSE emitter for raffle results.
func NewAssignmentEventEmitter() *AssignmentEventEmitter {
	return &AssignmentEventEmitter{
		sectionClients: make(map[string][]chan models.AssignmentResult),
	}
}

// SubscribeToSection adds a client watching one section's raffles.
func (e *AssignmentEventEmitter) SubscribeToSection(ctx context.Context, sectionID string) chan models.AssignmentResult {
	clientChan := make(chan models.AssignmentResult, 10)

	e.sectionClientMutex.Lock()
	e.sectionClients[sectionID] = append(e.sectionClients[sectionID], clientChan)
	e.sectionClientMutex.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeSectionClient(sectionID, clientChan)
	}()

	return clientChan
}

// SubscribeToAll adds a client watching every raffle in the market.
func (e *AssignmentEventEmitter) SubscribeToAll(ctx context.Context) chan models.AssignmentResult {
	clientChan := make(chan models.AssignmentResult, 10)

	e.allClientMutex.Lock()
	e.allClients = append(e.allClients, clientChan)
	e.allClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeAllClient(clientChan)
	}()

	return clientChan
}

// Broadcast fans a committed assignment result out to all subscribers.
func (e *AssignmentEventEmitter) Broadcast(result models.AssignmentResult) {
	e.sectionClientMutex.RLock()
	sectionID := result.Certificate.SectionID
	clients := e.sectionClients[sectionID]
	e.sectionClientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client cannot stall the emitter
		select {
		case clientChan <- result:
		default:
			// Channel buffer full, skip this client for now
		}
	}

	e.allClientMutex.RLock()
	all := e.allClients
	e.allClientMutex.RUnlock()

	for _, clientChan := range all {
		select {
		case clientChan <- result:
		default:
		}
	}
}

func (e *AssignmentEventEmitter) removeSectionClient(sectionID string, clientChan chan models.AssignmentResult) {
	e.sectionClientMutex.Lock()
	defer e.sectionClientMutex.Unlock()

	clients := e.sectionClients[sectionID]
	for i, ch := range clients {
		if ch == clientChan {
			e.sectionClients[sectionID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.sectionClients[sectionID]) == 0 {
		delete(e.sectionClients, sectionID)
	}
}

func (e *AssignmentEventEmitter) removeAllClient(clientChan chan models.AssignmentResult) {
	e.allClientMutex.Lock()
	defer e.allClientMutex.Unlock()

	for i, ch := range e.allClients {
		if ch == clientChan {
			e.allClients = append(e.allClients[:i], e.allClients[i+1:]...)
			close(clientChan)
			break
		}
	}
}

// SectionClientCount returns the number of clients watching a section.
func (e *AssignmentEventEmitter) SectionClientCount(sectionID string) int {
	e.sectionClientMutex.RLock()
	defer e.sectionClientMutex.RUnlock()
	return len(e.sectionClients[sectionID])
}
