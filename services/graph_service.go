package services

import (
	"context"
	"fmt"

	"github.com/camden-git/peoplegraph/repository"
	"go.uber.org/zap"
)

// GraphService loads an owner's snapshot and runs the graph analyzers on it
type GraphService struct {
	store *repository.Store
	log   *zap.Logger
}

// NewGraphService creates a graph service
func NewGraphService(store *repository.Store, log *zap.Logger) *GraphService {
	return &GraphService{store: store, log: log.Named("graph")}
}

// PersonSummary summarizes one person's connections
func (s *GraphService) PersonSummary(ctx context.Context, personID string) (*PersonSummary, error) {
	store := s.store.WithContext(ctx)
	if _, err := store.People.GetByID(personID); err != nil {
		return nil, storeError(err, "person "+personID)
	}
	conns, err := store.Connections.ListIncident(personID)
	if err != nil {
		return nil, storeError(err, "connections of "+personID)
	}
	summary := AnalyzePerson(personID, conns)
	return &summary, nil
}

// Network computes network-wide statistics for an owner
func (s *GraphService) Network(ctx context.Context, ownerID string) (*NetworkStats, error) {
	store := s.store.WithContext(ctx)
	people, err := store.People.ListByOwner(ownerID)
	if err != nil {
		return nil, storeError(err, "people of owner "+ownerID)
	}
	conns, err := store.Connections.ListByOwner(ownerID)
	if err != nil {
		return nil, storeError(err, "connections of owner "+ownerID)
	}
	stats := AnalyzeNetwork(people, conns)
	return &stats, nil
}

// Path finds the shortest chain of people linking fromID to toID within maxDegrees hops.
// A nil path with a nil error means no such chain exists.
func (s *GraphService) Path(ctx context.Context, ownerID, fromID, toID string, maxDegrees int) ([]string, error) {
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("%w: from and to are required", ErrValidation)
	}
	if maxDegrees <= 0 {
		maxDegrees = DefaultMaxDegrees
	}
	store := s.store.WithContext(ctx)
	for _, id := range []string{fromID, toID} {
		p, err := store.People.GetByID(id)
		if err != nil {
			return nil, storeError(err, "person "+id)
		}
		if p.OwnerID != ownerID {
			return nil, fmt.Errorf("%w: person %s", ErrNotFound, id)
		}
	}
	conns, err := store.Connections.ListByOwner(ownerID)
	if err != nil {
		return nil, storeError(err, "connections of owner "+ownerID)
	}
	return FindPath(fromID, toID, conns, maxDegrees), nil
}
