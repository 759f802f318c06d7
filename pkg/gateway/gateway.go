// Package gateway mediates file reads and writes requested by an untrusted
// front-end. Every operation runs a guard chain — rate limit, payload size,
// file extension, path containment — and only then touches the filesystem.
package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fsgate/fsgate/pkg/pathguard"
	"github.com/fsgate/fsgate/pkg/ratelimit"
)

// MaxFileSize caps written payloads and on-disk reads at 10 MiB.
const MaxFileSize = 10 * 1024 * 1024

const (
	maxCallsPerWindow = 10
	rateWindow        = time.Second
)

// Operation names. Each carries an independent rate budget.
const (
	OpWriteText   = "write_text"
	OpWriteBinary = "write_binary"
	OpReadText    = "read_text"
)

var (
	textExtensions   = map[string]bool{".json": true, ".xml": true}
	binaryExtensions = map[string]bool{".xlsx": true}
)

// Gateway applies the guard chain around filesystem operations. One
// instance holds the process-wide rate-limit state and must be shared by
// all callers for the limits to hold.
type Gateway struct {
	Guard *pathguard.Guard

	// Recorder, when set, receives every allow/deny decision.
	Recorder Recorder

	limiter *ratelimit.Limiter
}

func New() *Gateway {
	return &Gateway{
		Guard:   pathguard.New(),
		limiter: ratelimit.New(maxCallsPerWindow, rateWindow),
	}
}

// WriteText writes textual content (.json or .xml) and returns the path it
// wrote to.
func (g *Gateway) WriteText(ctx context.Context, path, content string) (string, error) {
	if err := g.admitWrite(ctx, OpWriteText, path, int64(len(content)), textExtensions); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		wrapped := fmt.Errorf("write failed: %w", err)
		g.record(ctx, OpWriteText, path, false, wrapped.Error(), int64(len(content)))
		return "", wrapped
	}

	g.record(ctx, OpWriteText, path, true, "", int64(len(content)))
	return path, nil
}

// WriteBinary writes binary content (.xlsx) and returns the path it wrote to.
func (g *Gateway) WriteBinary(ctx context.Context, path string, content []byte) (string, error) {
	if err := g.admitWrite(ctx, OpWriteBinary, path, int64(len(content)), binaryExtensions); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		wrapped := fmt.Errorf("write failed: %w", err)
		g.record(ctx, OpWriteBinary, path, false, wrapped.Error(), int64(len(content)))
		return "", wrapped
	}

	g.record(ctx, OpWriteBinary, path, true, "", int64(len(content)))
	return path, nil
}

// ReadText returns the content of a .json or .xml file. The file's size is
// checked against MaxFileSize via metadata before any bytes are read.
func (g *Gateway) ReadText(ctx context.Context, path string) (string, error) {
	if !g.limiter.Allow(OpReadText) {
		return "", g.deny(ctx, OpReadText, path, ErrRateLimited, 0)
	}
	if err := checkExtension(path, textExtensions); err != nil {
		return "", g.deny(ctx, OpReadText, path, err, 0)
	}
	if !g.Guard.IsAllowed(path) {
		return "", g.deny(ctx, OpReadText, path, ErrPathNotAllowed, 0)
	}

	info, err := os.Stat(path)
	if err != nil {
		wrapped := fmt.Errorf("could not stat file: %w", err)
		g.record(ctx, OpReadText, path, false, wrapped.Error(), 0)
		return "", wrapped
	}
	if info.Size() > MaxFileSize {
		return "", g.deny(ctx, OpReadText, path, sizeError(), info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		wrapped := fmt.Errorf("read failed: %w", err)
		g.record(ctx, OpReadText, path, false, wrapped.Error(), info.Size())
		return "", wrapped
	}

	g.record(ctx, OpReadText, path, true, "", info.Size())
	return string(data), nil
}

// AllowedDirs reports the allowed root directories that exist on this host,
// for the caller to present as guidance. It runs no guard chain and never
// fails.
func (g *Gateway) AllowedDirs() []string {
	return g.Guard.RootDirs()
}

// LimiterStats exposes rate-limiter bookkeeping for health reporting.
func (g *Gateway) LimiterStats() ratelimit.Stats {
	return g.limiter.Stats()
}

// admitWrite runs the write-side guard chain, aborting on the first failing
// stage. No filesystem call happens until every stage passes.
func (g *Gateway) admitWrite(ctx context.Context, op, path string, size int64, allowed map[string]bool) error {
	if !g.limiter.Allow(op) {
		return g.deny(ctx, op, path, ErrRateLimited, size)
	}
	if size > MaxFileSize {
		return g.deny(ctx, op, path, sizeError(), size)
	}
	if err := checkExtension(path, allowed); err != nil {
		return g.deny(ctx, op, path, err, size)
	}
	if !g.Guard.IsAllowed(path) {
		return g.deny(ctx, op, path, ErrPathNotAllowed, size)
	}
	return nil
}

func (g *Gateway) deny(ctx context.Context, op, path string, err error, size int64) error {
	g.record(ctx, op, path, false, err.Error(), size)
	return err
}

func (g *Gateway) record(ctx context.Context, op, path string, allowed bool, reason string, size int64) {
	if g.Recorder == nil {
		return
	}
	d := Decision{
		Operation: op,
		Path:      path,
		Allowed:   allowed,
		Reason:    reason,
		Bytes:     size,
		At:        time.Now(),
	}
	if err := g.Recorder.Record(ctx, d); err != nil {
		log.Warn().Err(err).Str("operation", op).Msg("Audit record failed")
	}
}

func sizeError() error {
	return fmt.Errorf("%w (%d MB max)", ErrPayloadTooLarge, MaxFileSize/1024/1024)
}

func checkExtension(path string, allowed map[string]bool) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" || ext == "." {
		return ErrMissingExtension
	}
	if !allowed[ext] {
		return fmt.Errorf("%w: %s", ErrDisallowedExtension, ext)
	}
	return nil
}
