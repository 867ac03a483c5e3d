package store

// Row is the durable, append-only row written for every successfully
// decoded label assertion (§3's "Durable row", §4.4). It is a superset
// of label.Assertion plus SeenAt; no uniqueness constraint is enforced
// — duplicates from re-replay are expected and are the reason SeenAt
// exists.
//
// Grounded on bsky.watch/labeler/server/model.go's Entry type, adapted
// from the teacher's "one row per current label state" shape (Seq as
// primary key) to an append-only log (a surrogate ID as primary key,
// Seq just an indexed column), matching the schema in
// original_source/src/lib.rs's "label_records" table.
type Row struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	Src             string `gorm:"not null;index:idx_src_target_val"`
	TargetURI       string `gorm:"column:target_uri;not null;index:idx_src_target_val"`
	Val             string `gorm:"not null;index:idx_src_target_val"`
	Seq             int64  `gorm:"not null;index"`
	CreateTimestamp string `gorm:"column:create_timestamp;not null"`
	ExpiryTimestamp string `gorm:"column:expiry_timestamp"`
	Neg             bool   `gorm:"default:false"`
	TargetCID       string `gorm:"column:target_cid"`
	Sig             []byte
	SeenAt          string `gorm:"column:seen_at_timestamp;not null"`
}

func (Row) TableName() string {
	return "label_records"
}
