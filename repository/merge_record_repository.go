package repository

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/camden-git/peoplegraph/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MergeRecordRepository persists the merge audit trail
type MergeRecordRepository struct {
	DB *gorm.DB
}

// NewMergeRecordRepository creates a new instance of MergeRecordRepository
func NewMergeRecordRepository(db *gorm.DB) *MergeRecordRepository {
	return &MergeRecordRepository{DB: db}
}

// Create stores a merge record
func (r *MergeRecordRepository) Create(record *models.MergeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	if err := r.DB.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record merge of %s into %s: %w", record.SourcePersonID, record.TargetPersonID, err)
	}
	return nil
}

// ListByPerson returns merges where personID was the target or the source, newest first
func (r *MergeRecordRepository) ListByPerson(personID string) ([]models.MergeRecord, error) {
	q, err := where(r.DB, sq.Or{
		sq.Eq{"target_person_id": personID},
		sq.Eq{"source_person_id": personID},
	})
	if err != nil {
		return nil, err
	}
	var records []models.MergeRecord
	if err := q.Order("created_at DESC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list merges for person %s: %w", personID, err)
	}
	return records, nil
}
