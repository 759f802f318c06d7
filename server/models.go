package main

import "time"

// FileOpRecord is one audited gateway decision: an admitted or rejected
// file operation. Path may be an HMAC digest when redaction is enabled.
type FileOpRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Operation string `gorm:"index"`
	Path      string `gorm:"type:text"`
	Allowed   bool   `gorm:"index"`
	Reason    string `gorm:"type:text"`
	Bytes     int64
	At        time.Time `gorm:"index"`
	CreatedAt time.Time
}
