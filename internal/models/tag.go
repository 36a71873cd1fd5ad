package models

import (
	"playmatch/tags/internal/slug"

	"gorm.io/gorm"
)

// Tag is a reusable label (e.g. "RPG", "Co-op") that any taggable record can
// carry. Name and Type together form the natural key; an empty Type is the
// untyped tag.
type Tag struct {
	gorm.Model
	Name        string `gorm:"size:100;not null;uniqueIndex:idx_tags_natural_key,priority:1"`
	Type        string `gorm:"size:100;not null;uniqueIndex:idx_tags_natural_key,priority:2;index:idx_tags_type_order,priority:1"`
	OrderColumn int    `gorm:"not null;index:idx_tags_type_order,priority:2"`
	Slug        string `gorm:"size:255;index"`
}

func (t *Tag) GetID() uint     { return t.ID }
func (t *Tag) GetName() string { return t.Name }
func (t *Tag) GetType() string { return t.Type }
func (t *Tag) GetOrder() int   { return t.OrderColumn }
func (t *Tag) GetSlug() string { return t.Slug }

// Assign initialises a new tag before insert.
func (t *Tag) Assign(name, typ string, order int) {
	t.Name = name
	t.Type = typ
	t.OrderColumn = order
}

// BeforeCreate derives the slug from the name.
func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name)
	}
	return nil
}

// BeforeUpdate keeps the slug in step with renames.
func (t *Tag) BeforeUpdate(tx *gorm.DB) error {
	if !tx.Statement.Changed("Name") {
		return nil
	}
	switch dest := tx.Statement.Dest.(type) {
	case map[string]any:
		if name, ok := dest["name"].(string); ok {
			tx.Statement.SetColumn("Slug", slug.Make(name))
		}
	case *Tag:
		tx.Statement.SetColumn("Slug", slug.Make(dest.Name))
	case Tag:
		tx.Statement.SetColumn("Slug", slug.Make(dest.Name))
	}
	return nil
}
