package tagging

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query over a taggable table. Scopes compose with any other
// condition, ordering or pagination through (*gorm.DB).Scopes.
type Scope = func(*gorm.DB) *gorm.DB

// WithAllTags selects taggables that carry every one of refs. A name that
// does not resolve to an existing tag makes the scope match nothing.
// Resolution never creates tags.
func (e *Engine[T, PT]) WithAllTags(ctx context.Context, model Taggable, refs []Ref, opts ...Option) (Scope, error) {
	tags, err := e.resolve(ctx, refs, newScope(opts), false)
	if err != nil {
		return nil, err
	}
	return e.allScope(model, tags), nil
}

// WithAnyTags selects taggables that carry at least one of refs. Names that
// do not resolve are dropped; if none resolve the scope matches nothing.
func (e *Engine[T, PT]) WithAnyTags(ctx context.Context, model Taggable, refs []Ref, opts ...Option) (Scope, error) {
	tags, err := e.resolve(ctx, refs, newScope(opts), false)
	if err != nil {
		return nil, err
	}
	return e.anyScope(model, tags), nil
}

// WithAllTagsOfAnyType is WithAllTags with names resolved regardless of type.
func (e *Engine[T, PT]) WithAllTagsOfAnyType(ctx context.Context, model Taggable, refs []Ref) (Scope, error) {
	tags, err := e.resolve(ctx, refs, scope{}, true)
	if err != nil {
		return nil, err
	}
	return e.allScope(model, tags), nil
}

// WithAnyTagsOfAnyType is WithAnyTags with names resolved regardless of type.
func (e *Engine[T, PT]) WithAnyTagsOfAnyType(ctx context.Context, model Taggable, refs []Ref) (Scope, error) {
	tags, err := e.resolve(ctx, refs, scope{}, true)
	if err != nil {
		return nil, err
	}
	return e.anyScope(model, tags), nil
}

func (e *Engine[T, PT]) allScope(model Taggable, tags []PT) Scope {
	// Tag id 0 never exists, so an unresolved tag empties the result.
	ids := make([]uint, 0, len(tags))
	for _, tag := range tags {
		if tag == nil {
			ids = append(ids, 0)
			continue
		}
		ids = append(ids, tag.GetID())
	}

	taggableType := model.TaggableType()
	key := clause.Column{Table: model.TaggableTable(), Name: "id"}
	return func(db *gorm.DB) *gorm.DB {
		for _, id := range ids {
			linked := db.Session(&gorm.Session{NewDB: true}).
				Table(e.linkTable).
				Select("taggable_id").
				Where("taggable_type = ? AND tag_id = ?", taggableType, id)
			db = db.Where("? IN (?)", key, linked)
		}
		return db
	}
}

func (e *Engine[T, PT]) anyScope(model Taggable, tags []PT) Scope {
	ids := make([]uint, 0, len(tags))
	for _, tag := range tags {
		if tag != nil {
			ids = append(ids, tag.GetID())
		}
	}

	taggableType := model.TaggableType()
	key := clause.Column{Table: model.TaggableTable(), Name: "id"}
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db.Where("1 = 0")
		}
		linked := db.Session(&gorm.Session{NewDB: true}).
			Table(e.linkTable).
			Select("taggable_id").
			Where("taggable_type = ? AND tag_id IN ?", taggableType, ids)
		return db.Where("? IN (?)", key, linked)
	}
}
