package tagging

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store owns the canonical set of tag records.
type Store[T any, PT RecordPtr[T]] struct {
	db *gorm.DB
}

// NewStore creates a Store over the given database handle.
func NewStore[T any, PT RecordPtr[T]](db *gorm.DB) *Store[T, PT] {
	return &Store[T, PT]{db: db}
}

// WithTx returns a copy of the store bound to tx.
func (s *Store[T, PT]) WithTx(tx *gorm.DB) *Store[T, PT] {
	return &Store[T, PT]{db: tx}
}

func (s *Store[T, PT]) query(ctx context.Context) *gorm.DB {
	return s.db.Session(&gorm.Session{NewDB: true, Context: ctx}).Model(PT(new(T)))
}

func nameEq(name string) clause.Expression {
	return clause.Eq{Column: "name", Value: name}
}

func typeEq(typ string) clause.Expression {
	return clause.Eq{Column: "type", Value: typ}
}

func (s *Store[T, PT]) first(q *gorm.DB) (PT, error) {
	rec := PT(new(T))
	if err := q.First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Get loads a tag by id. It returns nil when the tag does not exist.
func (s *Store[T, PT]) Get(ctx context.Context, id uint) (PT, error) {
	rec, err := s.first(s.query(ctx).Where("id = ?", id))
	if err != nil {
		return nil, errors.Wrapf(err, "get tag %d", id)
	}
	return rec, nil
}

// FindByName looks a tag up by exact name within one type. Without OfType the
// lookup only matches untyped tags. It returns nil when nothing matches.
func (s *Store[T, PT]) FindByName(ctx context.Context, name string, opts ...Option) (PT, error) {
	sc := newScope(opts)
	rec, err := s.first(s.query(ctx).Where(nameEq(name)).Where(typeEq(sc.typ)))
	if err != nil {
		return nil, errors.Wrapf(err, "find tag %q", name)
	}
	return rec, nil
}

// FindByNameAnyType returns the first tag with the given name, whatever its type.
func (s *Store[T, PT]) FindByNameAnyType(ctx context.Context, name string) (PT, error) {
	rec, err := s.first(s.query(ctx).Where(nameEq(name)))
	if err != nil {
		return nil, errors.Wrapf(err, "find tag %q of any type", name)
	}
	return rec, nil
}

// FindOrCreate resolves ref to a tag, creating it when a name does not exist
// yet. Live records are returned unchanged unless they conflict with OfType.
func (s *Store[T, PT]) FindOrCreate(ctx context.Context, ref Ref, opts ...Option) (PT, error) {
	sc := newScope(opts)
	if ref.rec != nil {
		return checkRecord[T, PT](ref.rec, sc)
	}
	if strings.TrimSpace(ref.name) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "tag name is empty")
	}

	rec, err := s.FindByName(ctx, ref.name, OfType(sc.typ))
	if err != nil || rec != nil {
		return rec, err
	}
	return s.create(ctx, ref.name, sc.typ)
}

// FindOrCreateMany maps every ref through FindOrCreate, preserving order.
// Duplicate refs yield the same tag more than once.
func (s *Store[T, PT]) FindOrCreateMany(ctx context.Context, refs []Ref, opts ...Option) ([]PT, error) {
	tags := make([]PT, 0, len(refs))
	for _, ref := range refs {
		tag, err := s.FindOrCreate(ctx, ref, opts...)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// create inserts a new tag at the end of its type's ordering. Losing an
// insert race on (name, type) falls back to the row that won.
func (s *Store[T, PT]) create(ctx context.Context, name, typ string) (PT, error) {
	var next int
	err := s.query(ctx).
		Where(typeEq(typ)).
		Select("COALESCE(MAX(order_column), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return nil, errors.Wrapf(err, "next order for type %q", typ)
	}

	rec := PT(new(T))
	rec.Assign(name, typ, next)
	res := s.db.Session(&gorm.Session{NewDB: true, Context: ctx}).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "create tag %q", name)
	}
	if res.RowsAffected > 0 && rec.GetID() != 0 {
		return rec, nil
	}

	existing, err := s.FindByName(ctx, name, OfType(typ))
	if err != nil || existing != nil {
		return existing, err
	}
	// The natural key is held by a soft-deleted row.
	restored, err := s.restore(ctx, name, typ)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return nil, errors.Newf("tag %q of type %q conflicted on insert but cannot be found", name, typ)
	}
	return restored, nil
}

// restore clears deleted_at on the soft-deleted tag with the given natural
// key. It returns nil when no such row exists.
func (s *Store[T, PT]) restore(ctx context.Context, name, typ string) (PT, error) {
	rec, err := s.first(s.query(ctx).Unscoped().Where(nameEq(name)).Where(typeEq(typ)))
	if err != nil {
		return nil, errors.Wrapf(err, "find deleted tag %q", name)
	}
	if rec == nil {
		return nil, nil
	}
	err = s.query(ctx).Unscoped().
		Where("id = ?", rec.GetID()).
		Update("deleted_at", nil).Error
	if err != nil {
		return nil, errors.Wrapf(err, "restore tag %q", name)
	}
	return s.Get(ctx, rec.GetID())
}

// ListByType returns all tags of one type ordered by order_column.
func (s *Store[T, PT]) ListByType(ctx context.Context, typ string) ([]PT, error) {
	var tags []PT
	err := s.query(ctx).
		Where(typeEq(typ)).
		Order("order_column ASC").
		Order("id ASC").
		Find(&tags).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list tags of type %q", typ)
	}
	return tags, nil
}

// Search returns tags whose name contains substring, ignoring case.
// The result has no defined order.
func (s *Store[T, PT]) Search(ctx context.Context, substring string) ([]PT, error) {
	var tags []PT
	pattern := ContainsPattern(strings.ToLower(substring))
	if err := s.query(ctx).Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).Find(&tags).Error; err != nil {
		return nil, errors.Wrapf(err, "search tags %q", substring)
	}
	return tags, nil
}

// Update changes a tag's attributes. Keys are column names.
func (s *Store[T, PT]) Update(ctx context.Context, rec PT, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(rec).Updates(changes).Error; err != nil {
		return errors.Wrapf(err, "update tag %d", rec.GetID())
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns s into a LIKE pattern matching any value that
// contains s literally. Use it with ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func checkRecord[T any, PT RecordPtr[T]](rec Record, sc scope) (PT, error) {
	pt, ok := rec.(PT)
	if !ok || pt == nil {
		return nil, errors.Wrapf(ErrInvalidInput, "unsupported tag record %T", rec)
	}
	if sc.typed && pt.GetType() != sc.typ {
		return nil, typeConflict(sc.typ, pt)
	}
	return pt, nil
}
