package services

import (
	"path/filepath"
	"testing"

	"github.com/camden-git/peoplegraph/database"
	"github.com/camden-git/peoplegraph/models"
	"github.com/camden-git/peoplegraph/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestStore opens a fresh migrated sqlite database under t.TempDir()
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "people.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func createPerson(t *testing.T, store *repository.Store, p models.Person) *models.Person {
	t.Helper()
	if p.OwnerID == "" {
		p.OwnerID = "owner"
	}
	require.NoError(t, store.People.Create(&p))
	return &p
}

func createConnection(t *testing.T, store *repository.Store, from, to *models.Person, types ...string) *models.Connection {
	t.Helper()
	c := &models.Connection{OwnerID: from.OwnerID, FromPersonID: from.ID, ToPersonID: to.ID, Types: types}
	require.NoError(t, store.Connections.Create(c))
	return c
}
