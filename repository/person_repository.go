package repository

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/camden-git/peoplegraph/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// columns written by Update; everything except identity, ownership and creation time
var personUpdateColumns = []string{
	"name", "company", "hobbies", "birthday", "first_met", "first_met_context", "notes",
	"source_image_ids", "primary_appearance_id", "version", "updated_at",
}

// PersonRepository handles database operations for Person and related FaceAppearance entities
type PersonRepository struct {
	DB *gorm.DB
}

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

func orderedAppearances(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// Create creates a new person record together with any appearances already attached
func (r *PersonRepository) Create(person *models.Person) error {
	now := time.Now().Unix()
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	person.UpdatedAt = now
	person.Version = 1
	if person.SourceImageIDs == nil {
		person.SourceImageIDs = []string{}
	}

	for i := range person.FaceAppearances {
		a := &person.FaceAppearances[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.PersonID = person.ID
		a.Position = i
		a.CreatedAt = now
		a.UpdatedAt = now
		if a.IsPrimary && person.PrimaryAppearanceID == nil {
			id := a.ID
			person.PrimaryAppearanceID = &id
		}
		if a.SourceImageID != "" && !slices.Contains(person.SourceImageIDs, a.SourceImageID) {
			person.SourceImageIDs = append(person.SourceImageIDs, a.SourceImageID)
		}
	}

	if err := r.DB.Create(person).Error; err != nil {
		return fmt.Errorf("failed to create person %s: %w", person.Name, err)
	}
	return nil
}

// GetByID retrieves a person by ID, preloading appearances in display order
func (r *PersonRepository) GetByID(id string) (*models.Person, error) {
	var person models.Person
	err := r.DB.Preload("FaceAppearances", orderedAppearances).Where("id = ?", id).First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get person by ID %s: %w", id, err)
	}
	return &person, nil
}

// ListByOwner retrieves all people of an owner in creation order
func (r *PersonRepository) ListByOwner(ownerID string) ([]models.Person, error) {
	var people []models.Person
	err := r.DB.Preload("FaceAppearances", orderedAppearances).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list people for owner %s: %w", ownerID, err)
	}
	return people, nil
}

// Update writes the person's fields if the stored version still matches
// person.Version, then advances the version.
func (r *PersonRepository) Update(person *models.Person) error {
	expected := person.Version
	now := time.Now().Unix()
	sourceImageIDs := person.SourceImageIDs
	if sourceImageIDs == nil {
		sourceImageIDs = []string{}
	}

	result := r.DB.Model(&models.Person{}).
		Where("id = ? AND version = ?", person.ID, expected).
		Select(personUpdateColumns).
		Updates(&models.Person{
			Name:                person.Name,
			Company:             person.Company,
			Hobbies:             person.Hobbies,
			Birthday:            person.Birthday,
			FirstMet:            person.FirstMet,
			FirstMetContext:     person.FirstMetContext,
			Notes:               person.Notes,
			SourceImageIDs:      sourceImageIDs,
			PrimaryAppearanceID: person.PrimaryAppearanceID,
			Version:             expected + 1,
			UpdatedAt:           now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update person ID %s: %w", person.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(person.ID)
	}

	person.Version = expected + 1
	person.UpdatedAt = now
	return nil
}

// Delete removes a person if the stored version matches expectedVersion
func (r *PersonRepository) Delete(id string, expectedVersion int64) error {
	result := r.DB.Where("id = ? AND version = ?", id, expectedVersion).Delete(&models.Person{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete person ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(id)
	}
	return nil
}

// AddAppearance appends a face appearance to a person and records its roster
func (r *PersonRepository) AddAppearance(personID string, appearance *models.FaceAppearance) (*models.Person, error) {
	var updated *models.Person
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		repo := NewPersonRepository(tx)
		person, err := repo.GetByID(personID)
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		if appearance.ID == "" {
			appearance.ID = uuid.NewString()
		}
		appearance.PersonID = personID
		appearance.Position = len(person.FaceAppearances)
		appearance.CreatedAt = now
		appearance.UpdatedAt = now

		if appearance.IsPrimary {
			// at most one primary per person
			if err := tx.Model(&models.FaceAppearance{}).
				Where("person_id = ?", personID).
				Updates(map[string]interface{}{"is_primary": false, "updated_at": now}).Error; err != nil {
				return fmt.Errorf("failed to clear primary appearances for %s: %w", personID, err)
			}
			id := appearance.ID
			person.PrimaryAppearanceID = &id
		}
		if err := tx.Create(appearance).Error; err != nil {
			return fmt.Errorf("failed to create appearance for person %s: %w", personID, err)
		}

		if appearance.SourceImageID != "" && !slices.Contains(person.SourceImageIDs, appearance.SourceImageID) {
			person.SourceImageIDs = append(person.SourceImageIDs, appearance.SourceImageID)
		}
		if err := repo.Update(person); err != nil {
			return err
		}

		updated, err = repo.GetByID(personID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateAppearance re-parents, re-orders or re-flags an appearance
func (r *PersonRepository) UpdateAppearance(appearance *models.FaceAppearance) error {
	appearance.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.FaceAppearance{}).Where("id = ?", appearance.ID).Updates(map[string]interface{}{
		"person_id":  appearance.PersonID,
		"position":   appearance.Position,
		"is_primary": appearance.IsPrimary,
		"updated_at": appearance.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update appearance ID %s: %w", appearance.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteAppearances removes the given appearances
func (r *PersonRepository) DeleteAppearances(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.DB.Where("id IN ?", ids).Delete(&models.FaceAppearance{}).Error; err != nil {
		return fmt.Errorf("failed to delete %d appearances: %w", len(ids), err)
	}
	return nil
}

func (r *PersonRepository) missingOrStale(id string) error {
	var count int64
	if err := r.DB.Model(&models.Person{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check person ID %s: %w", id, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return ErrStaleRecord
}
