package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract 各实现共用的行为检查
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	rec, err := s.Create(ctx, "tests", "t1", map[string]any{"title": "Mock 1", "examId": "e1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.ID)
	assert.Equal(t, "Mock 1", rec.Fields["title"])

	_, err = s.Create(ctx, "tests", "t1", map[string]any{"title": "dup"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.Create(ctx, "tests", "t2", map[string]any{"title": "Mock 2", "examId": "e2"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "tests", "t3", map[string]any{"title": "Mock 3", "examId": "e1"})
	require.NoError(t, err)

	got, err := s.Get(ctx, "tests", "t2")
	require.NoError(t, err)
	assert.Equal(t, "Mock 2", got.Fields["title"])

	_, err = s.Get(ctx, "tests", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "questions", "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx, "tests", Query{Filters: []Filter{Eq("examId", "e1")}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "t3", list[1].ID)

	limited, err := s.List(ctx, "tests", Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	updated, err := s.Update(ctx, "tests", "t1", map[string]any{"title": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Fields["title"])
	assert.Equal(t, "e1", updated.Fields["examId"], "update merges fields")

	_, err = s.Update(ctx, "tests", "missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := s.List(ctx, "submissions", Query{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	fields := map[string]any{"title": "Mock"}
	_, err := s.Create(ctx, "tests", "t1", fields)
	require.NoError(t, err)
	fields["title"] = "changed"

	rec, err := s.Get(ctx, "tests", "t1")
	require.NoError(t, err)
	rec.Fields["title"] = "mutated"

	again, err := s.Get(ctx, "tests", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Mock", again.Fields["title"])
}

func TestMatchesNumericValues(t *testing.T) {
	assert.True(t, matches(map[string]any{"marks": float64(5)}, []Filter{Eq("marks", 5)}))
	assert.True(t, matches(map[string]any{"active": true}, []Filter{Eq("active", true)}))
	assert.False(t, matches(map[string]any{"marks": "5"}, []Filter{Eq("marks", 5)}))
	assert.False(t, matches(map[string]any{}, []Filter{Eq("marks", 5)}))
	assert.True(t, matches(map[string]any{"x": 1}, nil))
}
