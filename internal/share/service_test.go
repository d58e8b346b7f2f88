package share

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/handiism/beat-sharer/internal/config"
	"github.com/handiism/beat-sharer/internal/listdb"
	"github.com/handiism/beat-sharer/internal/model"
)

// backend serves both the list store and the map API.
type backend struct {
	t    *testing.T
	srv  *httptest.Server
	maps map[string]bool

	mu   sync.Mutex
	docs map[string]string
}

func newBackend(t *testing.T, maps ...string) *backend {
	t.Helper()
	b := &backend{t: t, maps: make(map[string]bool), docs: make(map[string]string)}
	for _, id := range maps {
		b.maps[id] = true
	}
	b.srv = httptest.NewServer(b)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/maps/id/"):
		id := strings.TrimPrefix(r.URL.Path, "/maps/id/")
		if !b.maps[id] {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"metadata": {"songName": "Song %s", "levelAuthorName": "Mapper"}, "versions": [{"hash": "h%s", "downloadURL": "%s/download/%s.zip"}]}`,
			id, id, b.srv.URL, id)
	case strings.HasPrefix(r.URL.Path, "/download/"):
		w.Write(levelZip(b.t))
	case strings.HasSuffix(r.URL.Path, ".json"):
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			b.docs[r.URL.Path] = string(body)
			return
		}
		body, ok := b.docs[r.URL.Path]
		if !ok {
			body = "null"
		}
		io.WriteString(w, body)
	default:
		http.NotFound(w, r)
	}
}

func (b *backend) doc(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docs[path]
}

func levelZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Info.dat")
	if err != nil {
		t.Error(err)
		return nil
	}
	w.Write([]byte(`{"_songName": "x"}`))
	if err := zw.Close(); err != nil {
		t.Error(err)
	}
	return buf.Bytes()
}

func testService(t *testing.T, b *backend) *Service {
	t.Helper()
	root := t.TempDir()
	settings := config.DefaultSettings()
	settings.CustomLevelsPath = filepath.Join(root, "CustomLevels")
	settings.PlaylistDir = filepath.Join(root, "Playlists")
	settings.MetadataURL = b.srv.URL
	settings.ListStoreURL = b.srv.URL
	settings.MaxConcurrentDownloads = 2
	settings.CreatePlaylist = true
	return NewService(settings, nil)
}

func installLevels(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func waitBatch(t *testing.T, batch *Batch) {
	t.Helper()
	select {
	case <-batch.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestUpload(t *testing.T) {
	b := newBackend(t)
	s := testService(t, b)
	installLevels(t, s.settings.CustomLevelsPath, "1a2b (Song - Mapper)", "ff (Other - Mapper)", "Backups")

	key, codes, err := s.Upload(context.Background())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if key != 0 {
		t.Errorf("key = %d, want 0", key)
	}
	if !slices.Equal(codes, []string{"1a2b", "ff"}) {
		t.Errorf("codes = %v", codes)
	}
	if got := b.doc("/0.json"); got != `"1a2b,ff"` {
		t.Errorf("stored list = %s", got)
	}
	if got := b.doc("/index.json"); got != `"1"` {
		t.Errorf("stored index = %s", got)
	}

	key, _, err = s.Upload(context.Background())
	if err != nil || key != 1 {
		t.Errorf("second Upload() = %d, %v; want 1, nil", key, err)
	}
}

func TestUploadNothingInstalled(t *testing.T) {
	s := testService(t, newBackend(t))
	installLevels(t, s.settings.CustomLevelsPath)

	if _, _, err := s.Upload(context.Background()); !errors.Is(err, ErrNothingToShare) {
		t.Errorf("Upload() error = %v, want ErrNothingToShare", err)
	}
}

func TestUploadMissingFolder(t *testing.T) {
	s := testService(t, newBackend(t))

	if _, _, err := s.Upload(context.Background()); model.KindOf(err) != model.KindIO {
		t.Errorf("Upload() error = %v, want IOFailed", err)
	}
}

func TestDownload(t *testing.T) {
	b := newBackend(t, "1a2b", "abc")
	b.docs["/3.json"] = `"1a2b,ff,abc"`
	s := testService(t, b)
	installLevels(t, s.settings.CustomLevelsPath, "ff (Installed - Mapper)")

	batch, err := s.Download(context.Background(), 3)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	waitBatch(t, batch)

	if batch.Key != 3 {
		t.Errorf("Key = %d, want 3", batch.Key)
	}
	if !slices.Equal(batch.Skipped, []string{"ff"}) {
		t.Errorf("Skipped = %v, want [ff]", batch.Skipped)
	}
	if batch.Err() != nil || batch.Completed() != 2 || len(batch.Failures()) != 0 {
		t.Fatalf("batch: completed=%d failures=%v err=%v", batch.Completed(), batch.Failures(), batch.Err())
	}

	for _, name := range []string{"1a2b (Song 1a2b - Mapper)", "abc (Song abc - Mapper)"} {
		if _, err := os.Stat(filepath.Join(s.settings.CustomLevelsPath, name, "Info.dat")); err != nil {
			t.Errorf("level %q not unpacked: %v", name, err)
		}
	}

	path, err := s.WritePlaylist(batch)
	if err != nil {
		t.Fatalf("WritePlaylist() error = %v", err)
	}
	if path != filepath.Join(s.settings.PlaylistDir, "shared-songs-3.bplist") {
		t.Errorf("playlist path = %q", path)
	}
}

func TestDownloadMissingKey(t *testing.T) {
	s := testService(t, newBackend(t))

	_, err := s.Download(context.Background(), 9)
	if !errors.Is(err, listdb.ErrKeyNotFound) {
		t.Errorf("Download() error = %v, want ErrKeyNotFound", err)
	}
}

func TestFetchReportsUnknownMaps(t *testing.T) {
	s := testService(t, newBackend(t, "1a2b"))
	s.settings.SkipExisting = false
	s.settings.CreatePlaylist = false

	batch, err := s.Fetch(context.Background(), []string{"1a2b", "zzz"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	waitBatch(t, batch)

	failures := batch.Failures()
	if batch.Completed() != 1 || len(failures) != 1 {
		t.Fatalf("completed=%d failures=%v", batch.Completed(), failures)
	}
	if failures[0].ID != "zzz" || failures[0].Kind() != model.KindNotFound {
		t.Errorf("failure = %s %v, want zzz ItemNotFound", failures[0].ID, failures[0].Kind())
	}

	path, err := s.WritePlaylist(batch)
	if err != nil || path != "" {
		t.Errorf("WritePlaylist() = %q, %v; want no playlist", path, err)
	}
}

func TestPartition(t *testing.T) {
	missing, present := partition([]string{"a", "b", "c", "b"}, []string{"b", "x"})
	if !slices.Equal(missing, []string{"a", "c"}) || !slices.Equal(present, []string{"b", "b"}) {
		t.Errorf("partition() = %v, %v", missing, present)
	}
}
