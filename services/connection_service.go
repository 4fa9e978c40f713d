package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/camden-git/peoplegraph/models"
	"github.com/camden-git/peoplegraph/repository"
	"go.uber.org/zap"
)

// NewConnection is the input for creating a connection
type NewConnection struct {
	FromPersonID string   `json:"from_person_id"`
	ToPersonID   string   `json:"to_person_id"`
	Types        []string `json:"types"`
	Reasons      []string `json:"reasons"`
	Strength     *int     `json:"strength,omitempty"`
	Notes        string   `json:"notes"`
}

// ConnectionService validates and stores connections
type ConnectionService struct {
	store *repository.Store
	log   *zap.Logger
}

// NewConnectionService creates a connection service
func NewConnectionService(store *repository.Store, log *zap.Logger) *ConnectionService {
	return &ConnectionService{store: store, log: log.Named("connections")}
}

// Create stores a connection after checking both endpoints exist, differ
// and share an owner.
func (s *ConnectionService) Create(ctx context.Context, req NewConnection) (*models.Connection, error) {
	types := normalizeTypes(req.Types)
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: at least one relationship type is required", ErrValidation)
	}
	if req.Strength != nil && (*req.Strength < 1 || *req.Strength > 5) {
		return nil, fmt.Errorf("%w: strength must be between 1 and 5, got %d", ErrValidation, *req.Strength)
	}
	if req.FromPersonID == "" || req.ToPersonID == "" {
		return nil, fmt.Errorf("%w: from_person_id and to_person_id are required", ErrValidation)
	}
	if req.FromPersonID == req.ToPersonID {
		return nil, fmt.Errorf("%w: a person cannot be connected to themselves", ErrInvalidOperation)
	}

	var conn *models.Connection
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		from, err := tx.People.GetByID(req.FromPersonID)
		if err != nil {
			return storeError(err, "person "+req.FromPersonID)
		}
		to, err := tx.People.GetByID(req.ToPersonID)
		if err != nil {
			return storeError(err, "person "+req.ToPersonID)
		}
		if from.OwnerID != to.OwnerID {
			return fmt.Errorf("%w: people %s and %s belong to different owners", ErrInvalidOperation, from.ID, to.ID)
		}

		// at most one connection per unordered pair
		existing, err := tx.Connections.ListIncident(from.ID)
		if err != nil {
			return storeError(err, "connections of person "+from.ID)
		}
		for i := range existing {
			if other, _ := existing[i].Counterpart(from.ID); other == to.ID {
				return fmt.Errorf("%w: people %s and %s are already connected by %s", ErrInvalidOperation, from.ID, to.ID, existing[i].ID)
			}
		}

		conn = &models.Connection{
			OwnerID:      from.OwnerID,
			FromPersonID: from.ID,
			ToPersonID:   to.ID,
			Types:        types,
			Reasons:      req.Reasons,
			Strength:     req.Strength,
			Notes:        req.Notes,
		}
		return storeError(tx.Connections.Create(conn), "create connection")
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("created connection",
		zap.String("connection_id", conn.ID),
		zap.String("from_person_id", conn.FromPersonID),
		zap.String("to_person_id", conn.ToPersonID))
	return conn, nil
}

// Delete removes a connection and returns the row as it was before removal
func (s *ConnectionService) Delete(ctx context.Context, id string) (*models.Connection, error) {
	var deleted *models.Connection
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		conn, err := tx.Connections.GetByID(id)
		if err != nil {
			return storeError(err, "connection "+id)
		}
		if err := tx.Connections.Delete(id); err != nil {
			return storeError(err, "connection "+id)
		}
		deleted = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListByOwner returns all of an owner's connections
func (s *ConnectionService) ListByOwner(ctx context.Context, ownerID string) ([]models.Connection, error) {
	conns, err := s.store.WithContext(ctx).Connections.ListByOwner(ownerID)
	if err != nil {
		return nil, storeError(err, "connections of owner "+ownerID)
	}
	return conns, nil
}

// normalizeTypes lowercases, trims and de-duplicates relationship tags
func normalizeTypes(types []string) []string {
	seen := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
