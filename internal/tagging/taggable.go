package tagging

import (
	"context"

	"gorm.io/gorm"
)

// Taggable is implemented by any record that can hold tags.
type Taggable interface {
	// TaggableID is the durable identity, zero while the record is unsaved.
	TaggableID() uint
	// TaggableType is stored in the taggable_type column of the link table.
	TaggableType() string
	// TaggableTable is the table whose id column scopes filter on.
	TaggableTable() string
	// PendingTags is the buffer used while the record has no identity.
	PendingTags() *Pending
}

// Pending holds a tag assignment made before the taggable was saved.
// It is flushed at most once.
type Pending struct {
	refs    []Ref
	opts    []Option
	flushed bool
}

// Queue replaces the pending assignment.
func (p *Pending) Queue(refs []Ref, opts ...Option) {
	p.refs = refs
	p.opts = opts
}

// Len returns the number of queued refs.
func (p *Pending) Len() int {
	return len(p.refs)
}

// Flushed reports whether the buffer has already been consumed.
func (p *Pending) Flushed() bool {
	return p.flushed
}

func (p *Pending) take() ([]Ref, []Option, bool) {
	if p.flushed {
		return nil, nil, false
	}
	p.flushed = true
	refs, opts := p.refs, p.opts
	p.refs, p.opts = nil, nil
	return refs, opts, len(refs) > 0
}

// Toucher is notified after a sync changed a taggable's tag set.
type Toucher interface {
	Touch(ctx context.Context, db *gorm.DB, t Taggable) error
}

// ToucherFunc adapts a function to Toucher.
type ToucherFunc func(ctx context.Context, db *gorm.DB, t Taggable) error

func (f ToucherFunc) Touch(ctx context.Context, db *gorm.DB, t Taggable) error {
	return f(ctx, db, t)
}

type nopToucher struct{}

func (nopToucher) Touch(context.Context, *gorm.DB, Taggable) error { return nil }
