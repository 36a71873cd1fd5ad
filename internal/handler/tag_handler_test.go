package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTagIsFindOrCreate(t *testing.T) {
	r := setupRouter(t, 1)

	w := do(t, r, http.MethodPost, "/tags", map[string]any{"name": "Open World", "type": "genre"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[TagResponse](t, w)
	assert.Equal(t, "open-world", created.Slug)
	assert.Equal(t, 1, created.Order)

	w = do(t, r, http.MethodPost, "/tags", map[string]any{"name": "Open World", "type": "genre"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[TagResponse](t, w).ID)

	w = do(t, r, http.MethodPost, "/tags", map[string]any{"name": "Open World"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, created.ID, decode[TagResponse](t, w).ID)

	w = do(t, r, http.MethodPost, "/tags", map[string]any{"type": "genre"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTags(t *testing.T) {
	r := setupRouter(t, 1)
	seedTag(t, "Racing", "genre")
	seedTag(t, "Puzzle", "genre")
	seedTag(t, "racer", "")

	w := do(t, r, http.MethodGet, "/tags?type=genre", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Racing", "Puzzle"}, responseNames(decode[[]TagResponse](t, w)))

	w = do(t, r, http.MethodGet, "/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"racer"}, responseNames(decode[[]TagResponse](t, w)))

	w = do(t, r, http.MethodGet, "/tags?q=RAC", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"Racing", "racer"}, responseNames(decode[[]TagResponse](t, w)))

	w = do(t, r, http.MethodGet, "/tags?q=RAC&type=genre", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Racing"}, responseNames(decode[[]TagResponse](t, w)))
}

func TestUpdateTag(t *testing.T) {
	r := setupRouter(t, 1)
	racing := seedTag(t, "Racing", "genre")
	seedTag(t, "Puzzle", "genre")
	path := fmt.Sprintf("/tags/%d", racing.ID)

	w := do(t, r, http.MethodPut, path, map[string]any{"name": "Car Racing", "order": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[TagResponse](t, w)
	assert.Equal(t, "Car Racing", updated.Name)
	assert.Equal(t, "car-racing", updated.Slug)
	assert.Equal(t, 10, updated.Order)

	w = do(t, r, http.MethodPut, path, map[string]any{"name": "Puzzle"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPut, path, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/tags/999", map[string]any{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, "/tags/abc", map[string]any{"name": "Ghost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
