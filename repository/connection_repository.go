package repository

import (
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/camden-git/peoplegraph/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionRepository handles database operations for Connection entities
type ConnectionRepository struct {
	DB *gorm.DB
}

// NewConnectionRepository creates a new instance of ConnectionRepository
func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{DB: db}
}

// where applies a squirrel predicate to a GORM query
func where(db *gorm.DB, pred sq.Sqlizer) (*gorm.DB, error) {
	sqlStr, args, err := pred.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build predicate: %w", err)
	}
	return db.Where(sqlStr, args...), nil
}

// incidentTo matches rows with personID on either endpoint
func incidentTo(personID string) sq.Sqlizer {
	return sq.Or{
		sq.Eq{"from_person_id": personID},
		sq.Eq{"to_person_id": personID},
	}
}

// Create creates a new connection record in the database
func (r *ConnectionRepository) Create(conn *models.Connection) error {
	now := time.Now().Unix()
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.CreatedAt == 0 {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	conn.Version = 1
	if conn.Reasons == nil {
		conn.Reasons = []string{}
	}

	if err := r.DB.Create(conn).Error; err != nil {
		return fmt.Errorf("failed to create connection %s -> %s: %w", conn.FromPersonID, conn.ToPersonID, err)
	}
	return nil
}

// GetByID retrieves a connection by its ID
func (r *ConnectionRepository) GetByID(id string) (*models.Connection, error) {
	var conn models.Connection
	err := r.DB.Where("id = ?", id).First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get connection by ID %s: %w", id, err)
	}
	return &conn, nil
}

// ListByOwner retrieves all connections of an owner in creation order
func (r *ConnectionRepository) ListByOwner(ownerID string) ([]models.Connection, error) {
	q, err := where(r.DB, sq.Eq{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	var conns []models.Connection
	if err := q.Order("created_at ASC, id ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections for owner %s: %w", ownerID, err)
	}
	return conns, nil
}

// ListIncident retrieves every connection with personID on either endpoint
func (r *ConnectionRepository) ListIncident(personID string) ([]models.Connection, error) {
	q, err := where(r.DB, incidentTo(personID))
	if err != nil {
		return nil, err
	}
	var conns []models.Connection
	if err := q.Order("created_at ASC, id ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections of person %s: %w", personID, err)
	}
	return conns, nil
}

// UpdateEndpoints rewrites from/to if the stored version still matches conn.Version
func (r *ConnectionRepository) UpdateEndpoints(conn *models.Connection) error {
	expected := conn.Version
	now := time.Now().Unix()
	result := r.DB.Model(&models.Connection{}).
		Where("id = ? AND version = ?", conn.ID, expected).
		Select("from_person_id", "to_person_id", "version", "updated_at").
		Updates(&models.Connection{
			FromPersonID: conn.FromPersonID,
			ToPersonID:   conn.ToPersonID,
			Version:      expected + 1,
			UpdatedAt:    now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update connection ID %s: %w", conn.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(conn.ID)
	}
	conn.Version = expected + 1
	conn.UpdatedAt = now
	return nil
}

// Delete removes a connection by its ID
func (r *ConnectionRepository) Delete(id string) error {
	result := r.DB.Where("id = ?", id).Delete(&models.Connection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteAtVersion removes a connection only if it is unchanged since it was read
func (r *ConnectionRepository) DeleteAtVersion(id string, expectedVersion int64) error {
	result := r.DB.Where("id = ? AND version = ?", id, expectedVersion).Delete(&models.Connection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(id)
	}
	return nil
}

func (r *ConnectionRepository) missingOrStale(id string) error {
	var count int64
	if err := r.DB.Model(&models.Connection{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check connection ID %s: %w", id, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return ErrStaleRecord
}
