package tagging_test

import (
	"context"
	"sort"
	"testing"

	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type engine = tagging.Engine[models.Tag, *models.Tag]

// article is a minimal taggable used across the tests.
type article struct {
	gorm.Model
	Title      string
	QueuedTags tagging.Pending `gorm:"-"`
}

func (a *article) TaggableID() uint              { return a.ID }
func (a *article) TaggableType() string          { return "articles" }
func (a *article) TaggableTable() string         { return "articles" }
func (a *article) PendingTags() *tagging.Pending { return &a.QueuedTags }

// note shares ids with articles but is a different taggable type.
type note struct {
	gorm.Model
	Body string
}

func (n *note) TaggableID() uint              { return n.ID }
func (n *note) TaggableType() string          { return "notes" }
func (n *note) TaggableTable() string         { return "notes" }
func (n *note) PendingTags() *tagging.Pending { return nil }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&article{}, &note{}))
	return db
}

func newTestEngine(t *testing.T, cfg tagging.Config) (*engine, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	e := tagging.New[models.Tag](db, cfg)
	require.NoError(t, e.Migrate(context.Background()))
	return e, db
}

func createArticle(t *testing.T, db *gorm.DB, title string) *article {
	t.Helper()
	a := &article{Title: title}
	require.NoError(t, db.Create(a).Error)
	return a
}

func tagNames(tags []*models.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	sort.Strings(names)
	return names
}

func attachedNames(t *testing.T, e *engine, tg tagging.Taggable, opts ...tagging.Option) []string {
	t.Helper()
	tags, err := e.Tags(context.Background(), tg, opts...)
	require.NoError(t, err)
	return tagNames(tags)
}

func titles(t *testing.T, db *gorm.DB, scope tagging.Scope) []string {
	t.Helper()
	var articles []article
	require.NoError(t, db.Scopes(scope).Order("title").Find(&articles).Error)
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}

func countTags(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&n).Error)
	return n
}
