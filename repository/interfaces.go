package repository

import (
	"github.com/camden-git/peoplegraph/models"
)

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	Create(person *models.Person) error
	GetByID(id string) (*models.Person, error)
	ListByOwner(ownerID string) ([]models.Person, error)
	Update(person *models.Person) error
	Delete(id string, expectedVersion int64) error
	AddAppearance(personID string, appearance *models.FaceAppearance) (*models.Person, error)
	UpdateAppearance(appearance *models.FaceAppearance) error
	DeleteAppearances(ids []string) error
}

// ConnectionRepositoryInterface defines the methods for connection data operations
type ConnectionRepositoryInterface interface {
	Create(conn *models.Connection) error
	GetByID(id string) (*models.Connection, error)
	ListByOwner(ownerID string) ([]models.Connection, error)
	ListIncident(personID string) ([]models.Connection, error)
	UpdateEndpoints(conn *models.Connection) error
	Delete(id string) error
	DeleteAtVersion(id string, expectedVersion int64) error
}

// MergeRecordRepositoryInterface defines the methods for the merge audit trail
type MergeRecordRepositoryInterface interface {
	Create(record *models.MergeRecord) error
	ListByPerson(personID string) ([]models.MergeRecord, error)
}

var (
	_ PersonRepositoryInterface      = (*PersonRepository)(nil)
	_ ConnectionRepositoryInterface  = (*ConnectionRepository)(nil)
	_ MergeRecordRepositoryInterface = (*MergeRecordRepository)(nil)
)
