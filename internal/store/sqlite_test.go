package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/session"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := session.New("sess-1", "Colegio San Andrés")
	state = state.WithMapping(model.SourceSoftland, model.ColumnMapping{model.FieldFactura: "Doc"})
	require.NoError(t, s.Save(ctx, state))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Colegio San Andrés", got.Entity)
	assert.Equal(t, "Doc", got.Softland.Mapping[model.FieldFactura])
}

func TestSaveUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := session.New("sess-1", "A")
	require.NoError(t, s.Save(ctx, state))
	require.NoError(t, s.Save(ctx, state.WithReport("informe")))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "informe", got.Report)

	infos, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, session.New("sess-1", "Colegio A")))
	require.NoError(t, s.Save(ctx, session.New("sess-2", "Colegio B")))

	got, err := s.ByEntity(ctx, "Colegio B")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", got.ID)

	_, err = s.ByEntity(ctx, "Colegio C")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, session.New("sess-1", "A")))
	require.NoError(t, s.Delete(ctx, "sess-1"))

	_, err := s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "sess-1"), ErrNotFound)
}

func TestListMarksAnalyzed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state := session.New("sess-1", "A")
	state.Analysis = &model.AnalysisResult{}
	require.NoError(t, s.Save(ctx, state))

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Analyzed)
}
