package tagging

import "time"

// DefaultLinkTable is the link table name used when Config leaves it empty.
const DefaultLinkTable = "taggables"

// Link is one taggable-to-tag association. The composite primary key makes
// the (taggable_type, taggable_id, tag_id) triple unique. The tag_id index is
// created by Engine.Migrate and named after the link table actually used.
type Link struct {
	TaggableType string `gorm:"primaryKey;size:100"`
	TaggableID   uint   `gorm:"primaryKey;autoIncrement:false"`
	TagID        uint   `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt    time.Time
}

func (Link) TableName() string {
	return DefaultLinkTable
}

// linkIndexName names the tag_id index of a link table. Index names share one
// namespace per schema, so it must differ between link tables.
func linkIndexName(table string) string {
	return "idx_" + table + "_tag_id"
}
