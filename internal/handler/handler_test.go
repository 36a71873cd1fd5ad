package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"playmatch/tags/internal/config"
	"playmatch/tags/internal/database"
	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupRouter wires the handlers against a fresh in-memory database. Every
// request runs as the user with id asUser; admin checks are left to the auth
// package.
func setupRouter(t *testing.T, asUser uint) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Init(db, tagging.DefaultLinkTable))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if asUser != 0 {
			c.Set("userID", asUser)
		}
		c.Next()
	})
	r.POST("/auth/register", RegisterUser)
	r.POST("/auth/login", LoginUser)
	r.GET("/tags", GetTags)
	r.POST("/tags", CreateTag)
	r.PUT("/tags/:id", UpdateTag)
	r.GET("/me", GetMe)
	r.GET("/me/tags", GetMyTags)
	r.PUT("/me/tags", SyncMyTags)
	r.GET("/games", GetGames)
	r.POST("/games", CreateGame)
	r.GET("/games/:id", GetGameByID)
	r.PUT("/games/:id", UpdateGame)
	r.DELETE("/games/:id", DeleteGame)
	r.GET("/games/:id/tags", GetGameTags)
	r.POST("/games/:id/tags", AttachGameTags)
	r.DELETE("/games/:id/tags", DetachGameTags)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func responseNames(tags []TagResponse) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func seedTag(t *testing.T, name, typ string) *models.Tag {
	t.Helper()
	opts := []tagging.Option{}
	if typ != "" {
		opts = append(opts, tagging.OfType(typ))
	}
	tag, err := database.Tags.Store().FindOrCreate(context.Background(), tagging.Name(name), opts...)
	require.NoError(t, err)
	return tag
}

func createGame(t *testing.T, r *gin.Engine, name string, tags ...string) GameResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, "/games", map[string]any{"name": name, "tags": tags})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[GameResponse](t, w)
}
