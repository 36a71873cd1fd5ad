package tagging

// Ref identifies a tag either by name or by an already loaded record.
type Ref struct {
	name string
	rec  Record
}

// Name references a tag by its name.
func Name(name string) Ref {
	return Ref{name: name}
}

// Names references several tags by name, preserving order.
func Names(names ...string) []Ref {
	refs := make([]Ref, 0, len(names))
	for _, name := range names {
		refs = append(refs, Name(name))
	}
	return refs
}

// Existing references a live tag record.
func Existing(rec Record) Ref {
	return Ref{rec: rec}
}

// Records references several live tag records.
func Records[PT Record](recs ...PT) []Ref {
	refs := make([]Ref, 0, len(recs))
	for _, rec := range recs {
		refs = append(refs, Existing(rec))
	}
	return refs
}

// IsRecord reports whether the reference holds a live record.
func (r Ref) IsRecord() bool {
	return r.rec != nil
}

func (r Ref) String() string {
	if r.rec != nil {
		return r.rec.GetName()
	}
	return r.name
}

// Option narrows an operation to a single tag type.
type Option func(*scope)

type scope struct {
	typ   string
	typed bool
}

// OfType scopes resolution, creation and sync to the given tag type.
// OfType("") explicitly selects untyped tags; leaving the option out means no
// type was supplied at all.
func OfType(typ string) Option {
	return func(s *scope) {
		s.typ = typ
		s.typed = true
	}
}

func newScope(opts []Option) scope {
	var s scope
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
