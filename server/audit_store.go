package main

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fsgate/fsgate/pkg/gateway"
)

// AuditStore persists gateway decisions in the database with window-based
// retention. It implements gateway.Recorder.
type AuditStore struct {
	db        *gorm.DB
	retention time.Duration
	redact    func(string) string
}

// NewAuditStore constructs a store pruning records older than retention.
// redact, when non-nil, is applied to paths before they are stored.
func NewAuditStore(db *gorm.DB, retention time.Duration, redact func(string) string) *AuditStore {
	return &AuditStore{db: db, retention: retention, redact: redact}
}

// Record appends one decision, pruning records that have aged out of the
// retention window first.
func (s *AuditStore) Record(ctx context.Context, d gateway.Decision) error {
	cutoff := time.Now().Add(-s.retention)
	if err := s.db.WithContext(ctx).Where("at < ?", cutoff).Delete(&FileOpRecord{}).Error; err != nil {
		return err
	}

	path := d.Path
	if s.redact != nil {
		path = s.redact(path)
	}

	record := FileOpRecord{
		Operation: d.Operation,
		Path:      path,
		Allowed:   d.Allowed,
		Reason:    d.Reason,
		Bytes:     d.Bytes,
		At:        d.At,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// Recent returns up to limit records, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]FileOpRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []FileOpRecord
	err := s.db.WithContext(ctx).Order("at desc").Limit(limit).Find(&records).Error
	return records, err
}
