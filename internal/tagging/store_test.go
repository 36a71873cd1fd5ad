package tagging_test

import (
	"context"
	"testing"

	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateIsIdempotent(t *testing.T) {
	e, db := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	first, err := store.FindOrCreate(ctx, tagging.Name("alpha"), tagging.OfType("color"))
	require.NoError(t, err)
	second, err := store.FindOrCreate(ctx, tagging.Name("alpha"), tagging.OfType("color"))
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "color", first.Type)
	assert.EqualValues(t, 1, countTags(t, db))
}

func TestTypedAndUntypedTagsAreDistinct(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	untyped, err := store.FindOrCreate(ctx, tagging.Name("alpha"))
	require.NoError(t, err)
	typed, err := store.FindOrCreate(ctx, tagging.Name("alpha"), tagging.OfType("color"))
	require.NoError(t, err)
	assert.NotEqual(t, untyped.ID, typed.ID)
	assert.Empty(t, untyped.Type)

	found, err := store.FindByName(ctx, "alpha")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, untyped.ID, found.ID)

	found, err = store.FindByName(ctx, "alpha", tagging.OfType("color"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, typed.ID, found.ID)

	_, err = store.FindOrCreate(ctx, tagging.Name("beta"), tagging.OfType("size"))
	require.NoError(t, err)

	missing, err := store.FindByName(ctx, "beta")
	require.NoError(t, err)
	assert.Nil(t, missing)

	anyType, err := store.FindByNameAnyType(ctx, "beta")
	require.NoError(t, err)
	require.NotNil(t, anyType)
	assert.Equal(t, "size", anyType.Type)

	none, err := store.FindByNameAnyType(ctx, "gamma")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindByNameIsExact(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()

	_, err := e.Store().FindOrCreate(ctx, tagging.Name("Racing"))
	require.NoError(t, err)

	found, err := e.Store().FindByName(ctx, "racing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindOrCreateRejectsEmptyName(t *testing.T) {
	e, db := newTestEngine(t, tagging.Config{})

	_, err := e.Store().FindOrCreate(context.Background(), tagging.Name("  "))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tagging.ErrInvalidInput))
	assert.Zero(t, countTags(t, db))
}

func TestFindOrCreateWithRecord(t *testing.T) {
	e, db := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	blue, err := store.FindOrCreate(ctx, tagging.Name("blue"), tagging.OfType("color"))
	require.NoError(t, err)

	t.Run("returned unchanged", func(t *testing.T) {
		got, err := store.FindOrCreate(ctx, tagging.Existing(blue))
		require.NoError(t, err)
		assert.Same(t, blue, got)

		got, err = store.FindOrCreate(ctx, tagging.Existing(blue), tagging.OfType("color"))
		require.NoError(t, err)
		assert.Same(t, blue, got)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := store.FindOrCreate(ctx, tagging.Existing(blue), tagging.OfType("size"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, tagging.ErrTypeConflict))
		assert.True(t, errors.Is(err, tagging.ErrInvalidInput))
		assert.Contains(t, err.Error(), "blue")
	})

	t.Run("explicit untyped mismatch", func(t *testing.T) {
		_, err := store.FindOrCreate(ctx, tagging.Existing(blue), tagging.OfType(""))
		assert.True(t, errors.Is(err, tagging.ErrTypeConflict))
	})

	assert.EqualValues(t, 1, countTags(t, db))
}

func TestFindOrCreateManyPreservesOrder(t *testing.T) {
	e, db := newTestEngine(t, tagging.Config{})

	tags, err := e.Store().FindOrCreateMany(context.Background(), tagging.Names("b", "a", "b"))
	require.NoError(t, err)
	require.Len(t, tags, 3)

	assert.Equal(t, "b", tags[0].Name)
	assert.Equal(t, "a", tags[1].Name)
	assert.Equal(t, tags[0].ID, tags[2].ID)
	assert.EqualValues(t, 2, countTags(t, db))
}

func TestFindOrCreateManyStopsOnConflict(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()

	blue, err := e.Store().FindOrCreate(ctx, tagging.Name("blue"), tagging.OfType("color"))
	require.NoError(t, err)

	refs := []tagging.Ref{tagging.Name("large"), tagging.Existing(blue)}
	_, err = e.Store().FindOrCreateMany(ctx, refs, tagging.OfType("size"))
	assert.True(t, errors.Is(err, tagging.ErrTypeConflict))
}

func TestCreateAppendsToTypeOrdering(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	for _, name := range []string{"x", "y", "z"} {
		_, err := store.FindOrCreate(ctx, tagging.Name(name), tagging.OfType("genre"))
		require.NoError(t, err)
	}
	other, err := store.FindOrCreate(ctx, tagging.Name("w"), tagging.OfType("mood"))
	require.NoError(t, err)
	assert.Equal(t, 1, other.OrderColumn)

	genres, err := store.ListByType(ctx, "genre")
	require.NoError(t, err)
	require.Len(t, genres, 3)
	for i, tag := range genres {
		assert.Equal(t, i+1, tag.OrderColumn)
	}

	require.NoError(t, store.Update(ctx, genres[2], map[string]any{"order_column": 0}))

	genres, err = store.ListByType(ctx, "genre")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, []string{genres[0].Name, genres[1].Name, genres[2].Name})
}

func TestListByTypeUntyped(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()

	_, err := e.Store().FindOrCreateMany(ctx, tagging.Names("one", "two"))
	require.NoError(t, err)
	_, err = e.Store().FindOrCreate(ctx, tagging.Name("three"), tagging.OfType("color"))
	require.NoError(t, err)

	tags, err := e.Store().ListByType(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, tagNames(tags))
}

func TestSearchIgnoresCase(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()

	_, err := e.Store().FindOrCreateMany(ctx, tagging.Names("Racing", "racer", "Puzzle"))
	require.NoError(t, err)

	tags, err := e.Store().Search(ctx, "RAC")
	require.NoError(t, err)
	assert.Equal(t, []string{"Racing", "racer"}, tagNames(tags))

	tags, err = e.Store().Search(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestUpdateRefreshesSlug(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	tag, err := store.FindOrCreate(ctx, tagging.Name("Open World"))
	require.NoError(t, err)
	assert.Equal(t, "open-world", tag.Slug)

	require.NoError(t, store.Update(ctx, tag, map[string]any{"name": "Open Worlds"}))

	reloaded, err := store.Get(ctx, tag.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "Open Worlds", reloaded.Name)
	assert.Equal(t, "open-worlds", reloaded.Slug)
}

func TestGetMissingTag(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})

	tag, err := e.Store().Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, tag)
}

func TestTagsWithType(t *testing.T) {
	tags := []*models.Tag{
		{Name: "a"},
		{Name: "b", Type: "color"},
		{Name: "c", Type: "color"},
		{Name: "d", Type: "size"},
	}

	assert.Equal(t, []string{"b", "c"}, tagNames(tagging.TagsWithType(tags, "color")))
	assert.Equal(t, []string{"a"}, tagNames(tagging.TagsWithType(tags, "")))
	assert.Empty(t, tagging.TagsWithType(tags, "mood"))
}

func TestFindOrCreateRestoresSoftDeletedTag(t *testing.T) {
	e, db := newTestEngine(t, tagging.Config{})
	ctx := context.Background()
	store := e.Store()

	gone, err := store.FindOrCreate(ctx, tagging.Name("gone"), tagging.OfType("mood"))
	require.NoError(t, err)
	require.NoError(t, db.Delete(gone).Error)

	missing, err := store.FindByName(ctx, "gone", tagging.OfType("mood"))
	require.NoError(t, err)
	require.Nil(t, missing)

	back, err := store.FindOrCreate(ctx, tagging.Name("gone"), tagging.OfType("mood"))
	require.NoError(t, err)
	assert.Equal(t, gone.ID, back.ID)
	assert.False(t, back.DeletedAt.Valid)

	found, err := store.FindByName(ctx, "gone", tagging.OfType("mood"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, gone.ID, found.ID)
	assert.EqualValues(t, 1, countTags(t, db))
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	e, _ := newTestEngine(t, tagging.Config{})
	ctx := context.Background()

	_, err := e.Store().FindOrCreateMany(ctx, tagging.Names("100% Orange", "snake_case", `back\slash`, "plain"))
	require.NoError(t, err)

	cases := map[string][]string{
		"%":     {"100% Orange"},
		"_":     {"snake_case"},
		`\`:     {`back\slash`},
		"0% o":  {"100% Orange"},
		"e_c":   {"snake_case"},
		"plain": {"plain"},
	}
	for q, want := range cases {
		tags, err := e.Store().Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, tagNames(tags), "Search(%q)", q)
	}
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%abc%", tagging.ContainsPattern("abc"))
	assert.Equal(t, `%50\%\_off\\%`, tagging.ContainsPattern(`50%_off\`))
}
