package services

import (
	"context"
	"testing"

	"github.com/camden-git/peoplegraph/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDuplicateServiceScan(t *testing.T) {
	store := newTestStore(t)
	svc := NewDuplicateService(store, nil, zap.NewNop(), 0)

	john := createPerson(t, store, models.Person{Name: "John Smith", CreatedAt: 1})
	jon := createPerson(t, store, models.Person{Name: "Jon Smith", Company: "Acme", CreatedAt: 2})
	createPerson(t, store, models.Person{Name: "Xavier", CreatedAt: 3})
	createPerson(t, store, models.Person{Name: "John Smith", OwnerID: "other", CreatedAt: 4})

	suggestions, err := svc.Scan(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, john.ID, suggestions[0].PersonAID)
	assert.Equal(t, jon.ID, suggestions[0].PersonBID)
	assert.Equal(t, ConfidenceLow, suggestions[0].Confidence)
}

func TestDuplicateServiceScanLimit(t *testing.T) {
	store := newTestStore(t)
	svc := NewDuplicateService(store, nil, zap.NewNop(), 2)

	for _, name := range []string{"A", "B", "C"} {
		createPerson(t, store, models.Person{Name: name})
	}

	_, err := svc.Scan(context.Background(), "owner")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Scan(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDuplicateServiceEmptyOwner(t *testing.T) {
	svc := NewDuplicateService(newTestStore(t), nil, zap.NewNop(), 0)
	suggestions, err := svc.Scan(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestGraphService(t *testing.T) {
	store := newTestStore(t)
	svc := NewGraphService(store, zap.NewNop())
	ctx := context.Background()

	a := createPerson(t, store, models.Person{Name: "A", CreatedAt: 1})
	b := createPerson(t, store, models.Person{Name: "B", CreatedAt: 2})
	c := createPerson(t, store, models.Person{Name: "C", CreatedAt: 3})
	d := createPerson(t, store, models.Person{Name: "D", CreatedAt: 4})
	e := createPerson(t, store, models.Person{Name: "E", CreatedAt: 5})
	stranger := createPerson(t, store, models.Person{Name: "S", OwnerID: "other"})
	createConnection(t, store, a, b, "friend")
	createConnection(t, store, b, c, "colleague", "friend")
	createConnection(t, store, c, d, "sibling")

	t.Run("person summary", func(t *testing.T) {
		summary, err := svc.PersonSummary(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 2, summary.Social)
		assert.Equal(t, 1, summary.Professional)

		_, err = svc.PersonSummary(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("network", func(t *testing.T) {
		stats, err := svc.Network(ctx, "owner")
		require.NoError(t, err)
		assert.Equal(t, 5, stats.PersonCount)
		assert.Equal(t, 3, stats.ConnectionCount)
		require.Len(t, stats.Isolated, 1)
		assert.Equal(t, e.ID, stats.Isolated[0].PersonID)
		assert.InDelta(t, 0.3, stats.Density, 1e-9)
	})

	t.Run("path", func(t *testing.T) {
		path, err := svc.Path(ctx, "owner", a.ID, d.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID, b.ID, c.ID, d.ID}, path)

		path, err = svc.Path(ctx, "owner", a.ID, d.ID, 2)
		require.NoError(t, err)
		assert.Nil(t, path)

		path, err = svc.Path(ctx, "owner", a.ID, e.ID, 0)
		require.NoError(t, err)
		assert.Nil(t, path)

		_, err = svc.Path(ctx, "owner", a.ID, stranger.ID, 3)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.Path(ctx, "owner", a.ID, "", 3)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestConnectionServiceCreate(t *testing.T) {
	store := newTestStore(t)
	svc := NewConnectionService(store, zap.NewNop())
	ctx := context.Background()

	a := createPerson(t, store, models.Person{Name: "A"})
	b := createPerson(t, store, models.Person{Name: "B"})
	foreign := createPerson(t, store, models.Person{Name: "F", OwnerID: "other"})

	conn, err := svc.Create(ctx, NewConnection{
		FromPersonID: a.ID,
		ToPersonID:   b.ID,
		Types:        []string{" Friend", "friend", "Colleague", ""},
		Reasons:      []string{"met at work"},
		Strength:     intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "owner", conn.OwnerID)
	assert.Equal(t, []string{"friend", "colleague"}, conn.Types)
	assert.Equal(t, int64(1), conn.Version)

	stored, err := store.Connections.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, *stored.Strength)
	assert.Equal(t, []string{"met at work"}, stored.Reasons)

	tests := []struct {
		name string
		req  NewConnection
		want error
	}{
		{"self loop", NewConnection{FromPersonID: a.ID, ToPersonID: a.ID, Types: []string{"friend"}}, ErrInvalidOperation},
		{"cross owner", NewConnection{FromPersonID: a.ID, ToPersonID: foreign.ID, Types: []string{"friend"}}, ErrInvalidOperation},
		{"missing endpoint", NewConnection{FromPersonID: a.ID, ToPersonID: "ghost", Types: []string{"friend"}}, ErrNotFound},
		{"no types", NewConnection{FromPersonID: a.ID, ToPersonID: b.ID, Types: []string{"  "}}, ErrValidation},
		{"strength too low", NewConnection{FromPersonID: a.ID, ToPersonID: b.ID, Types: []string{"friend"}, Strength: intPtr(0)}, ErrValidation},
		{"strength too high", NewConnection{FromPersonID: a.ID, ToPersonID: b.ID, Types: []string{"friend"}, Strength: intPtr(6)}, ErrValidation},
		{"same direction duplicate", NewConnection{FromPersonID: a.ID, ToPersonID: b.ID, Types: []string{"sibling"}}, ErrInvalidOperation},
		{"reverse direction duplicate", NewConnection{FromPersonID: b.ID, ToPersonID: a.ID, Types: []string{"friend"}}, ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	conns, err := svc.ListByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestConnectionServiceDelete(t *testing.T) {
	store := newTestStore(t)
	svc := NewConnectionService(store, zap.NewNop())
	ctx := context.Background()

	a := createPerson(t, store, models.Person{Name: "A"})
	b := createPerson(t, store, models.Person{Name: "B"})
	c := createConnection(t, store, a, b, "friend")

	deleted, err := svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)
	assert.Equal(t, "owner", deleted.OwnerID)

	_, err = svc.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionServiceKeepsPairsUniqueThroughMerge(t *testing.T) {
	store := newTestStore(t)
	svc := NewConnectionService(store, zap.NewNop())
	merges := NewMergeService(store, nil, nil, zap.NewNop(), 0)
	ctx := context.Background()

	a := createPerson(t, store, models.Person{Name: "Ann"})
	b := createPerson(t, store, models.Person{Name: "Ben"})
	c := createPerson(t, store, models.Person{Name: "Cat"})

	_, err := svc.Create(ctx, NewConnection{FromPersonID: a.ID, ToPersonID: b.ID, Types: []string{"friend"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewConnection{FromPersonID: b.ID, ToPersonID: a.ID, Types: []string{"friend"}})
	require.ErrorIs(t, err, ErrInvalidOperation)
	_, err = svc.Create(ctx, NewConnection{FromPersonID: c.ID, ToPersonID: b.ID, Types: []string{"colleague"}})
	require.NoError(t, err)

	_, err = merges.Merge(ctx, MergeRequest{
		TargetID:     a.ID,
		SourceID:     c.ID,
		FieldChoices: map[MergeField]FieldChoice{FieldName: KeepTarget},
	})
	require.NoError(t, err)

	assertMergedGraph(t, store, "owner", a.ID, c.ID)
	conns, err := svc.ListByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}
