// Package tagging associates arbitrary records ("taggables") with a shared
// pool of reusable, optionally typed tags.
//
// The concrete tag model is a type parameter of Store and Engine, so an
// application can extend tags with its own columns while the engine keeps
// working against the Record capability below. The empty type string is the
// untyped tag scope.
package tagging

// Record is the capability a tag model must expose to the engine.
// The backing table must carry the columns id, name, type, order_column and slug.
type Record interface {
	GetID() uint
	GetName() string
	GetType() string
	GetOrder() int
	GetSlug() string
}

// RecordPtr constrains the pointer type of a concrete tag model.
type RecordPtr[T any] interface {
	*T
	Record
	// Assign initialises a fresh record before it is inserted.
	Assign(name, typ string, order int)
}

// TagsWithType filters an already loaded tag set by type.
// An empty type only matches untyped tags.
func TagsWithType[PT Record](tags []PT, typ string) []PT {
	out := make([]PT, 0, len(tags))
	for _, tag := range tags {
		if tag.GetType() == typ {
			out = append(out, tag)
		}
	}
	return out
}

func idsOf[PT Record](tags []PT) []uint {
	ids := make([]uint, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.GetID())
	}
	return ids
}
