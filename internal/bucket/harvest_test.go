package bucket

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web/webtest"
)

type recordingMirror struct {
	mu   sync.Mutex
	keys []string
}

func (m *recordingMirror) Upload(ctx context.Context, bucket, key, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, bucket+"/"+key)
	return nil
}

func objectServer(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/a.txt":
		ctx.SetBodyString("hello")
	case "/dir/b.txt":
		ctx.SetBodyString("abc")
	case "/secret.key":
		ctx.SetStatusCode(fasthttp.StatusForbidden)
	case "/gone.txt":
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	default:
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

func TestHarvestGroupsByStatus(t *testing.T) {
	dir := t.TempDir()
	mirror := &recordingMirror{}
	harvester := NewHarvester(webtest.NewClient(t, objectServer), time.Second, Options{
		OutputDir: dir,
		Download:  true,
		Threads:   4,
		Mirror:    mirror,
	})
	endpoint := testEndpoint(t)
	objects := []Object{
		{Key: "a.txt", Size: 5},
		{Key: "dir/"},
		{Key: "dir/b.txt", Size: 3},
		{Key: "secret.key", Size: 4},
		{Key: "gone.txt"},
		{Key: "broken.bin"},
	}
	result, err := harvester.Harvest(context.Background(), endpoint, objects)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if got := len(result.URLs(200)); got != 2 {
		t.Fatalf("allowed = %d, want 2", got)
	}
	if got := result.URLs(403); len(got) != 1 || got[0] != endpoint.ObjectURL("secret.key") {
		t.Fatalf("denied = %v", got)
	}
	if got := len(result.URLs(404)); got != 1 {
		t.Fatalf("missing = %d, want 1", got)
	}
	if got := result.Other(); len(got) != 1 {
		t.Fatalf("other = %v", got)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "dir/" {
		t.Fatalf("skipped = %v", result.Skipped)
	}
	if result.BytesSaved != 8 || len(result.Saved) != 2 {
		t.Fatalf("saved %v (%d bytes)", result.Saved, result.BytesSaved)
	}
	body, err := os.ReadFile(filepath.Join(dir, "example", "dir", "b.txt"))
	if err != nil || string(body) != "abc" {
		t.Fatalf("saved file = %q, %v", body, err)
	}
	if len(mirror.keys) != 2 {
		t.Fatalf("mirrored %v", mirror.keys)
	}
}

func TestHarvestSendsKeysVerbatim(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	client := webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		seen[string(ctx.RequestURI())] = true
		mu.Unlock()
		ctx.SetBodyString("x")
	})
	dir := t.TempDir()
	harvester := NewHarvester(client, time.Second, Options{OutputDir: dir, Download: true, Threads: 2})
	keys := []Object{{Key: "a/../b.txt"}, {Key: "a//b"}, {Key: "./c"}, {Key: "plus+sign"}}
	result, err := harvester.Harvest(context.Background(), testEndpoint(t), keys)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	for _, want := range []string{"/a/../b.txt", "/a//b", "/./c", "/plus%2Bsign"} {
		if !seen[want] {
			t.Fatalf("server never saw %s, got %v", want, seen)
		}
	}
	if got := len(result.URLs(200)); got != 4 {
		t.Fatalf("allowed = %d, want 4", got)
	}
}

func TestHarvestNoDownload(t *testing.T) {
	dir := t.TempDir()
	harvester := NewHarvester(webtest.NewClient(t, objectServer), time.Second, Options{OutputDir: dir, Threads: 2, Rate: 1000})
	result, err := harvester.Harvest(context.Background(), testEndpoint(t), []Object{{Key: "a.txt"}})
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if len(result.URLs(200)) != 1 || len(result.Saved) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, "example")); !os.IsNotExist(err) {
		t.Fatalf("expected nothing written, stat err = %v", err)
	}
}

func TestHarvestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	harvester := NewHarvester(webtest.NewClient(t, objectServer), time.Second, Options{Threads: 1})
	if _, err := harvester.Harvest(ctx, testEndpoint(t), []Object{{Key: "a.txt"}}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestWanted(t *testing.T) {
	harvester := NewHarvester(nil, time.Second, Options{
		Include: []string{"*.txt", "backup/*"},
		Exclude: []string{"*private*"},
		MaxSize: 100,
	})
	tests := []struct {
		object Object
		want   bool
	}{
		{Object{Key: "notes.txt"}, true},
		{Object{Key: "backup/db.sql"}, true},
		{Object{Key: "image.png"}, false},
		{Object{Key: "private-notes.txt"}, false},
		{Object{Key: "big.txt", Size: 101}, false},
		{Object{Key: "docs/"}, false},
	}
	for _, tt := range tests {
		if got := harvester.Wanted(tt.object); got != tt.want {
			t.Fatalf("Wanted(%q) = %v, want %v", tt.object.Key, got, tt.want)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	root := filepath.Join("out", "bucket")
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"a.txt", filepath.Join(root, "a.txt"), false},
		{"dir/b.txt", filepath.Join(root, "dir", "b.txt"), false},
		{"../../etc/passwd", filepath.Join(root, "etc", "passwd"), false},
		{"/abs/path", filepath.Join(root, "abs", "path"), false},
		{"a/../../b", filepath.Join(root, "b"), false},
		{`..\..\win.ini`, filepath.Join(root, "win.ini"), false},
		{"..", "", true},
		{"", "", true},
		{"nul\x00byte", "", true},
	}
	for _, tt := range tests {
		got, err := SafeJoin(root, tt.key)
		if (err != nil) != tt.wantErr {
			t.Fatalf("SafeJoin(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("SafeJoin(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
