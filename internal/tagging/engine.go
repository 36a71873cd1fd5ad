package tagging

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"playmatch/tags/internal/logger"
)

// Config customises an Engine.
type Config struct {
	// LinkTable overrides the association table name.
	LinkTable string
	// Toucher is notified after a sync changed something. Defaults to a no-op.
	Toucher Toucher
}

// Engine owns the link table between taggables and tags of type T.
//
// Operations run on the handle given to New or WithTx and open no
// transaction of their own: callers that need attach, detach or sync to be
// atomic wrap the call in a transaction and pass it through WithTx.
type Engine[T any, PT RecordPtr[T]] struct {
	db        *gorm.DB
	store     *Store[T, PT]
	linkTable string
	toucher   Toucher
}

// New creates an Engine for the tag model T.
func New[T any, PT RecordPtr[T]](db *gorm.DB, cfg Config) *Engine[T, PT] {
	if cfg.LinkTable == "" {
		cfg.LinkTable = DefaultLinkTable
	}
	if cfg.Toucher == nil {
		cfg.Toucher = nopToucher{}
	}
	return &Engine[T, PT]{
		db:        db,
		store:     NewStore[T, PT](db),
		linkTable: cfg.LinkTable,
		toucher:   cfg.Toucher,
	}
}

// WithTx returns a copy of the engine whose reads and writes go through tx.
func (e *Engine[T, PT]) WithTx(tx *gorm.DB) *Engine[T, PT] {
	c := *e
	c.db = tx
	c.store = e.store.WithTx(tx)
	return &c
}

// Store exposes the tag store the engine resolves through.
func (e *Engine[T, PT]) Store() *Store[T, PT] {
	return e.store
}

// LinkTable returns the association table name.
func (e *Engine[T, PT]) LinkTable() string {
	return e.linkTable
}

// Migrate creates or updates the tag and link tables.
func (e *Engine[T, PT]) Migrate(ctx context.Context) error {
	if err := e.conn(ctx).AutoMigrate(PT(new(T))); err != nil {
		return errors.Wrap(err, "migrate tags")
	}
	if err := e.conn(ctx).Table(e.linkTable).AutoMigrate(&Link{}); err != nil {
		return errors.Wrapf(err, "migrate %s", e.linkTable)
	}
	err := e.conn(ctx).Exec("CREATE INDEX IF NOT EXISTS ? ON ? (?)",
		clause.Column{Name: linkIndexName(e.linkTable)},
		clause.Table{Name: e.linkTable},
		clause.Column{Name: "tag_id"}).Error
	if err != nil {
		return errors.Wrapf(err, "index %s", e.linkTable)
	}
	return nil
}

func (e *Engine[T, PT]) conn(ctx context.Context) *gorm.DB {
	return e.db.Session(&gorm.Session{NewDB: true, Context: ctx})
}

func (e *Engine[T, PT]) links(ctx context.Context, t Taggable) *gorm.DB {
	return e.conn(ctx).Table(e.linkTable).
		Where("taggable_type = ? AND taggable_id = ?", t.TaggableType(), t.TaggableID())
}

// region --- Reading ---

// TagIDs returns the ids of the tags attached to t. With OfType only tags of
// that type are returned.
func (e *Engine[T, PT]) TagIDs(ctx context.Context, t Taggable, opts ...Option) ([]uint, error) {
	sc := newScope(opts)
	q := e.links(ctx, t)
	if sc.typed {
		typed := e.conn(ctx).Model(PT(new(T))).Select("id").Where(typeEq(sc.typ))
		q = q.Where("tag_id IN (?)", typed)
	}

	var ids []uint
	if err := q.Order("tag_id").Pluck("tag_id", &ids).Error; err != nil {
		return nil, errors.Wrapf(err, "load tag ids of %s %d", t.TaggableType(), t.TaggableID())
	}
	return ids, nil
}

// Tags returns the tags attached to t ordered by order_column, optionally
// limited to one type.
func (e *Engine[T, PT]) Tags(ctx context.Context, t Taggable, opts ...Option) ([]PT, error) {
	sc := newScope(opts)
	attached := e.links(ctx, t).Select("tag_id")
	q := e.conn(ctx).Where("id IN (?)", attached)
	if sc.typed {
		q = q.Where(typeEq(sc.typ))
	}

	var tags []PT
	if err := q.Order("order_column").Order("id").Find(&tags).Error; err != nil {
		return nil, errors.Wrapf(err, "load tags of %s %d", t.TaggableType(), t.TaggableID())
	}
	return tags, nil
}

// TagsByTaggable loads the tags of many taggables of one type at once,
// keyed by taggable id.
func (e *Engine[T, PT]) TagsByTaggable(ctx context.Context, taggableType string, ids []uint) (map[uint][]PT, error) {
	out := make(map[uint][]PT, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var links []Link
	err := e.conn(ctx).Table(e.linkTable).
		Where("taggable_type = ? AND taggable_id IN ?", taggableType, ids).
		Find(&links).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load links of %s", taggableType)
	}
	if len(links) == 0 {
		return out, nil
	}

	tagIDs := make([]uint, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.TagID)
	}
	var tags []PT
	if err := e.conn(ctx).Where("id IN ?", tagIDs).Order("order_column").Order("id").Find(&tags).Error; err != nil {
		return nil, errors.Wrapf(err, "load tags of %s", taggableType)
	}

	owners := make(map[uint][]uint, len(tagIDs))
	for _, l := range links {
		owners[l.TagID] = append(owners[l.TagID], l.TaggableID)
	}
	for _, tag := range tags {
		for _, id := range owners[tag.GetID()] {
			out[id] = append(out[id], tag)
		}
	}
	return out, nil
}

// endregion

// region --- Writing ---

// Attach adds tags to t without removing any existing association. Names are
// found or created within the OfType scope.
func (e *Engine[T, PT]) Attach(ctx context.Context, t Taggable, refs []Ref, opts ...Option) error {
	if err := requireIdentity(t); err != nil {
		return err
	}
	tags, err := e.store.FindOrCreateMany(ctx, refs, opts...)
	if err != nil {
		return err
	}
	return e.attachIDs(ctx, t, idsOf(tags))
}

// AttachTag attaches a single tag.
func (e *Engine[T, PT]) AttachTag(ctx context.Context, t Taggable, ref Ref, opts ...Option) error {
	return e.Attach(ctx, t, []Ref{ref}, opts...)
}

// Detach removes tags from t. Names that do not resolve to an existing tag
// are skipped.
func (e *Engine[T, PT]) Detach(ctx context.Context, t Taggable, refs []Ref, opts ...Option) error {
	if err := requireIdentity(t); err != nil {
		return err
	}
	tags, err := e.resolve(ctx, refs, newScope(opts), false)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(tags))
	for _, tag := range tags {
		if tag != nil {
			ids = append(ids, tag.GetID())
		}
	}
	return e.detachIDs(ctx, t, ids)
}

// DetachTag detaches a single tag.
func (e *Engine[T, PT]) DetachTag(ctx context.Context, t Taggable, ref Ref, opts ...Option) error {
	return e.Detach(ctx, t, []Ref{ref}, opts...)
}

// Changes describes what a Sync did.
type Changes struct {
	Attached []uint
	Detached []uint
}

// Empty reports whether the sync was a no-op.
func (c Changes) Empty() bool {
	return len(c.Attached) == 0 && len(c.Detached) == 0
}

// Sync makes the tags of t equal to refs. With OfType only tags of that type
// are compared and detached; tags of other types are left alone. The Toucher
// fires only when something changed.
func (e *Engine[T, PT]) Sync(ctx context.Context, t Taggable, refs []Ref, opts ...Option) (Changes, error) {
	var changes Changes
	if err := requireIdentity(t); err != nil {
		return changes, err
	}

	desired, err := e.store.FindOrCreateMany(ctx, refs, opts...)
	if err != nil {
		return changes, err
	}
	current, err := e.TagIDs(ctx, t, opts...)
	if err != nil {
		return changes, err
	}

	want := idsOf(desired)
	changes.Detached = difference(current, want)
	changes.Attached = difference(want, current)

	if err := e.detachIDs(ctx, t, changes.Detached); err != nil {
		return changes, err
	}
	if err := e.attachIDs(ctx, t, changes.Attached); err != nil {
		return changes, err
	}
	if changes.Empty() {
		return changes, nil
	}

	logger.Logger.Debugw("tags synced",
		"taggable_type", t.TaggableType(),
		"taggable_id", t.TaggableID(),
		"attached", changes.Attached,
		"detached", changes.Detached)

	if err := e.toucher.Touch(ctx, e.conn(ctx), t); err != nil {
		return changes, errors.Wrapf(err, "touch %s %d", t.TaggableType(), t.TaggableID())
	}
	return changes, nil
}

// SetTags attaches refs to a saved taggable, or queues them on an unsaved
// one until OnIdentityAssigned runs.
func (e *Engine[T, PT]) SetTags(ctx context.Context, t Taggable, refs []Ref, opts ...Option) error {
	if t.TaggableID() != 0 {
		return e.Attach(ctx, t, refs, opts...)
	}
	p := t.PendingTags()
	if p == nil {
		return errors.Wrapf(ErrInvalidInput, "%s has no pending tag buffer", t.TaggableType())
	}
	p.Queue(refs, opts...)
	return nil
}

// OnIdentityAssigned must be called once t has been persisted. It attaches
// any queued tags and clears the buffer; later calls do nothing.
func (e *Engine[T, PT]) OnIdentityAssigned(ctx context.Context, t Taggable) error {
	p := t.PendingTags()
	if p == nil {
		return nil
	}
	refs, opts, ok := p.take()
	if !ok {
		return nil
	}
	return e.Attach(ctx, t, refs, opts...)
}

// OnBeforeDelete must be called when t is being deleted. It detaches every
// tag so that no link outlives the taggable.
func (e *Engine[T, PT]) OnBeforeDelete(ctx context.Context, t Taggable) error {
	if t.TaggableID() == 0 {
		return nil
	}
	ids, err := e.TagIDs(ctx, t)
	if err != nil {
		return err
	}
	return e.detachIDs(ctx, t, ids)
}

func (e *Engine[T, PT]) attachIDs(ctx context.Context, t Taggable, ids []uint) error {
	ids = unique(ids)
	if len(ids) == 0 {
		return nil
	}
	links := make([]Link, 0, len(ids))
	for _, id := range ids {
		links = append(links, Link{
			TaggableType: t.TaggableType(),
			TaggableID:   t.TaggableID(),
			TagID:        id,
		})
	}
	err := e.conn(ctx).Table(e.linkTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	if err != nil {
		return errors.Wrapf(err, "attach tags to %s %d", t.TaggableType(), t.TaggableID())
	}
	return nil
}

func (e *Engine[T, PT]) detachIDs(ctx context.Context, t Taggable, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := e.links(ctx, t).Where("tag_id IN ?", ids).Delete(&Link{}).Error
	if err != nil {
		return errors.Wrapf(err, "detach tags from %s %d", t.TaggableType(), t.TaggableID())
	}
	return nil
}

// endregion

// resolve converts refs to tags without creating anything. Unresolved names
// come back as nil entries.
func (e *Engine[T, PT]) resolve(ctx context.Context, refs []Ref, sc scope, anyType bool) ([]PT, error) {
	tags := make([]PT, 0, len(refs))
	for _, ref := range refs {
		var (
			tag PT
			err error
		)
		switch {
		case ref.rec != nil && anyType:
			tag, err = checkRecord[T, PT](ref.rec, scope{})
		case ref.rec != nil:
			tag, err = checkRecord[T, PT](ref.rec, sc)
		case anyType:
			tag, err = e.store.FindByNameAnyType(ctx, ref.name)
		default:
			tag, err = e.store.FindByName(ctx, ref.name, OfType(sc.typ))
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func requireIdentity(t Taggable) error {
	if t.TaggableID() == 0 {
		return errors.Wrapf(ErrInvalidInput, "%s has no identity yet", t.TaggableType())
	}
	return nil
}

// difference returns the ids of a that are not in b, keeping a's order.
func difference(a, b []uint) []uint {
	var out []uint
	for _, id := range unique(a) {
		if !slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

func unique(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
