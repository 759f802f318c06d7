package gateway

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type captureRecorder struct {
	decisions []Decision
	fail      bool
}

func (r *captureRecorder) Record(_ context.Context, d Decision) error {
	if r.fail {
		return errors.New("recorder unavailable")
	}
	r.decisions = append(r.decisions, d)
	return nil
}

func newTestGateway(t *testing.T) (*Gateway, string) {
	t.Helper()
	root := t.TempDir()
	g := New()
	g.Guard.Roots = func() []string { return []string{root} }
	return g, root
}

func TestWriteTextRoundTrip(t *testing.T) {
	g, root := newTestGateway(t)
	ctx := context.Background()
	path := filepath.Join(root, "out.json")

	written, err := g.WriteText(ctx, path, `{"ok":true}`)
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if written != path {
		t.Fatalf("WriteText returned %q, want %q", written, path)
	}

	content, err := g.ReadText(ctx, path)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestWriteBinaryRoundTrip(t *testing.T) {
	g, root := newTestGateway(t)
	path := filepath.Join(root, "report.xlsx")

	payload := []byte{0x50, 0x4b, 0x03, 0x04}
	if _, err := g.WriteBinary(context.Background(), path, payload); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Fatal("binary content mismatch")
	}
}

func TestExtensionChecks(t *testing.T) {
	g, root := newTestGateway(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "write text rejects xlsx",
			call: func() error {
				_, err := g.WriteText(ctx, filepath.Join(root, "a.xlsx"), "{}")
				return err
			},
			want: ErrDisallowedExtension,
		},
		{
			name: "write binary rejects json",
			call: func() error {
				_, err := g.WriteBinary(ctx, filepath.Join(root, "a.json"), []byte("{}"))
				return err
			},
			want: ErrDisallowedExtension,
		},
		{
			name: "read rejects xlsx",
			call: func() error {
				_, err := g.ReadText(ctx, filepath.Join(root, "a.xlsx"))
				return err
			},
			want: ErrDisallowedExtension,
		},
		{
			name: "write text rejects missing extension",
			call: func() error {
				_, err := g.WriteText(ctx, filepath.Join(root, "noext"), "{}")
				return err
			},
			want: ErrMissingExtension,
		},
		{
			name: "write binary rejects missing extension",
			call: func() error {
				_, err := g.WriteBinary(ctx, filepath.Join(root, "noext"), []byte("{}"))
				return err
			},
			want: ErrMissingExtension,
		},
		{
			name: "read rejects missing extension",
			call: func() error {
				_, err := g.ReadText(ctx, filepath.Join(root, "noext"))
				return err
			},
			want: ErrMissingExtension,
		},
		{
			name: "extension match is case-insensitive",
			call: func() error {
				_, err := g.WriteText(ctx, filepath.Join(root, "a.JSON"), "{}")
				return err
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPayloadSizeBoundary(t *testing.T) {
	g, root := newTestGateway(t)
	ctx := context.Background()

	exact := strings.Repeat("x", MaxFileSize)
	if _, err := g.WriteText(ctx, filepath.Join(root, "exact.json"), exact); err != nil {
		t.Fatalf("payload of exactly MaxFileSize should succeed: %v", err)
	}

	_, err := g.WriteText(ctx, filepath.Join(root, "over.json"), exact+"x")
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadChecksSizeBeforeReading(t *testing.T) {
	g, root := newTestGateway(t)
	path := filepath.Join(root, "big.json")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", MaxFileSize+1)), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := g.ReadText(context.Background(), path)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestWriteOutsideRootsRejected(t *testing.T) {
	g, _ := newTestGateway(t)
	outside := filepath.Join(t.TempDir(), "out.json")

	_, err := g.WriteText(context.Background(), outside, "{}")
	if !errors.Is(err, ErrPathNotAllowed) {
		t.Fatalf("got %v, want ErrPathNotAllowed", err)
	}
	if _, statErr := os.Stat(outside); !os.IsNotExist(statErr) {
		t.Fatal("rejected write must not touch the filesystem")
	}
}

func TestTraversalRejected(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "allowed")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(base, "secret.json")
	if err := os.WriteFile(secret, []byte("top secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := New()
	g.Guard.Roots = func() []string { return []string{root} }

	sneaky := filepath.Join(root, "sub", "..", "..", "secret.json")
	_, err := g.ReadText(context.Background(), sneaky)
	if !errors.Is(err, ErrPathNotAllowed) {
		t.Fatalf("got %v, want ErrPathNotAllowed", err)
	}
}

func TestRateLimitPerOperation(t *testing.T) {
	g, root := newTestGateway(t)
	ctx := context.Background()

	for i := 0; i < maxCallsPerWindow; i++ {
		if _, err := g.WriteText(ctx, filepath.Join(root, "out.json"), "{}"); err != nil {
			t.Fatalf("write %d failed: %v", i+1, err)
		}
	}

	_, err := g.WriteText(ctx, filepath.Join(root, "out.json"), "{}")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("11th write got %v, want ErrRateLimited", err)
	}

	// Other operations keep their own budget.
	if _, err := g.ReadText(ctx, filepath.Join(root, "out.json")); err != nil {
		t.Fatalf("read should not share the write budget: %v", err)
	}
}

func TestIOFailureWrapped(t *testing.T) {
	g, root := newTestGateway(t)
	// A directory at the target path makes the write itself fail after
	// every guard stage has passed.
	target := filepath.Join(root, "out.json")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := g.WriteText(context.Background(), target, "{}")
	if err == nil {
		t.Fatal("expected write failure")
	}
	if !strings.Contains(err.Error(), "write failed") {
		t.Fatalf("I/O error should carry the underlying diagnostic: %v", err)
	}
}

func TestRecorderSeesDecisions(t *testing.T) {
	g, root := newTestGateway(t)
	rec := &captureRecorder{}
	g.Recorder = rec
	ctx := context.Background()

	if _, err := g.WriteText(ctx, filepath.Join(root, "ok.json"), "{}"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.WriteText(ctx, filepath.Join(root, "bad.xlsx"), "{}"); !errors.Is(err, ErrDisallowedExtension) {
		t.Fatalf("got %v, want ErrDisallowedExtension", err)
	}

	if len(rec.decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(rec.decisions))
	}
	if !rec.decisions[0].Allowed || rec.decisions[0].Operation != OpWriteText {
		t.Fatalf("unexpected first decision: %+v", rec.decisions[0])
	}
	if rec.decisions[1].Allowed || rec.decisions[1].Reason == "" {
		t.Fatalf("denied decision should carry a reason: %+v", rec.decisions[1])
	}
}

func TestRecorderFailureDoesNotFailOperation(t *testing.T) {
	g, root := newTestGateway(t)
	g.Recorder = &captureRecorder{fail: true}

	if _, err := g.WriteText(context.Background(), filepath.Join(root, "ok.json"), "{}"); err != nil {
		t.Fatalf("recorder failure must not fail the write: %v", err)
	}
}

func TestAllowedDirsNeverFails(t *testing.T) {
	g := New()
	g.Guard.Roots = func() []string { return nil }
	if dirs := g.AllowedDirs(); dirs != nil && len(dirs) != 0 {
		t.Fatalf("expected no dirs, got %v", dirs)
	}

	root := t.TempDir()
	g.Guard.Roots = func() []string { return []string{root} }
	dirs := g.AllowedDirs()
	if len(dirs) != 1 || dirs[0] != root {
		t.Fatalf("unexpected dirs: %v", dirs)
	}
}
