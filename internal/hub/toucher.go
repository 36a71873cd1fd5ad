package hub

import (
	"context"
	"time"

	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// EventTagsSynced is broadcast after a sync changed a taggable's tags.
const EventTagsSynced = "tags.synced"

// Toucher bumps updated_at on the changed taggable and tells its subscribers.
type Toucher struct {
	Hub *Hub
	Now func() time.Time
}

// TouchPayload is the payload of EventTagsSynced.
type TouchPayload struct {
	TaggableType string    `json:"taggable_type"`
	TaggableID   uint      `json:"taggable_id"`
	TouchedAt    time.Time `json:"touched_at"`
}

// Touch implements tagging.Toucher.
func (t Toucher) Touch(ctx context.Context, db *gorm.DB, tg tagging.Taggable) error {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}

	err := db.WithContext(ctx).
		Table(tg.TaggableTable()).
		Where("id = ?", tg.TaggableID()).
		UpdateColumn("updated_at", now).Error
	if err != nil {
		return errors.Wrapf(err, "touch %s %d", tg.TaggableTable(), tg.TaggableID())
	}

	if t.Hub != nil {
		t.Hub.Broadcast(Topic(tg.TaggableType(), tg.TaggableID()), Event{
			Type: EventTagsSynced,
			Payload: TouchPayload{
				TaggableType: tg.TaggableType(),
				TaggableID:   tg.TaggableID(),
				TouchedAt:    now,
			},
		})
	}
	return nil
}
