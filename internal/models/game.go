package models

import (
	"playmatch/tags/internal/tagging"

	"gorm.io/gorm"
)

// GameTaggableType is the taggable_type stored for games.
const GameTaggableType = "games"

// Game represents a game in the system.
type Game struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string
	SteamURL    string `gorm:"size:512;index"`

	// Tags is filled by the handlers from the tagging engine.
	Tags       []*Tag          `gorm:"-"`
	QueuedTags tagging.Pending `gorm:"-" json:"-"`
}

func (g *Game) TaggableID() uint              { return g.ID }
func (g *Game) TaggableType() string          { return GameTaggableType }
func (g *Game) TaggableTable() string         { return "games" }
func (g *Game) PendingTags() *tagging.Pending { return &g.QueuedTags }
