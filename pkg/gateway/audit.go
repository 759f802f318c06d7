package gateway

import (
	"context"
	"time"
)

// Decision is one audited gateway outcome, allowed or denied.
type Decision struct {
	Operation string
	Path      string
	Allowed   bool
	Reason    string
	Bytes     int64
	At        time.Time
}

// Recorder persists decisions. Recording is best-effort: the gateway logs
// and drops recorder errors rather than failing the file operation.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
}
