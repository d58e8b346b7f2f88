package beatsaver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/handiism/beat-sharer/internal/beatsaver/dto"
	bshttp "github.com/handiism/beat-sharer/internal/http"
	ioutils "github.com/handiism/beat-sharer/internal/io"
	"github.com/handiism/beat-sharer/internal/model"
)

// DefaultBaseURL is the public map API.
const DefaultBaseURL = "https://api.beatsaver.com"

// Client resolves map codes and downloads their archives.
//
// Example usage:
//
//	client := NewClient(bshttp.NewClient(""), DefaultBaseURL, model.FolderDisplay)
//
//	m, err := client.Resolve(ctx, "1a2b3")
//	if err != nil {
//	    return err // *model.Error with TransportFailed, TextDecodeFailed or ItemNotFound
//	}
//
//	err = client.FetchAndUnpack(ctx, m, "/games/Beat Saber/CustomLevels", nil)
type Client struct {
	http    *bshttp.Client
	baseURL string
	style   model.FolderStyle
}

// NewClient creates a Client talking to baseURL. Folders are named with style.
func NewClient(httpClient *bshttp.Client, baseURL string, style model.FolderStyle) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		style:   style,
	}
}

// Resolve looks up the metadata for one map code.
//
// It issues a single GET {base}/maps/id/{id} and decodes the document into a
// fixed record. Errors map as follows:
//   - connection failures and non-404 error statuses: TransportFailed
//   - a body that is not valid UTF-8 text: TextDecodeFailed
//   - 404, a body that is not a map document, or a missing field: ItemNotFound
func (c *Client) Resolve(ctx context.Context, id string) (model.Map, error) {
	addr := fmt.Sprintf("%s/maps/id/%s", c.baseURL, url.PathEscape(id))

	body, err := c.http.Get(ctx, addr)
	if err != nil {
		var statusErr *bshttp.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return model.Map{}, model.NewError(model.KindNotFound, err)
		}
		return model.Map{}, model.NewError(model.KindTransport, err)
	}

	if !utf8.Valid(body) {
		return model.Map{}, model.Errorf(model.KindTextDecode, "map %s: response is not valid UTF-8", id)
	}

	var jsonMap dto.JSONMap
	if err := json.Unmarshal(body, &jsonMap); err != nil {
		return model.Map{}, model.NewError(model.KindNotFound, fmt.Errorf("map %s: %w", id, err))
	}

	m, err := jsonMap.ToMap(id)
	if err != nil {
		return model.Map{}, model.NewError(model.KindNotFound, fmt.Errorf("map %s: %w", id, err))
	}
	return m, nil
}

// Dir returns the folder a map is unpacked into below dest.
func (c *Client) Dir(dest string, m model.Map) string {
	return filepath.Join(dest, m.DirName(c.style))
}

// FetchAndUnpack downloads the map archive into memory and expands it into a
// new folder below dest.
//
// The archive is parsed before the folder is created, so a payload that is
// not a zip file fails with UnzipFailed and leaves nothing behind. A folder
// that already exists (or cannot be created) is IOFailed. If extraction fails
// part way, the partially written folder is removed.
//
// onProgress is optional and receives (bytesWritten, totalBytes).
func (c *Client) FetchAndUnpack(ctx context.Context, m model.Map, dest string, onProgress func(written, total int64)) error {
	data, err := c.http.DownloadBytes(ctx, m.DownloadURL, onProgress)
	if err != nil {
		return model.NewError(model.KindTransport, err)
	}

	archive, err := ioutils.OpenZip(data)
	if err != nil {
		return err
	}

	dir := c.Dir(dest, m)
	if err := ioutils.CreateDir(dir); err != nil {
		return model.NewError(model.KindIO, err)
	}

	if err := ioutils.ExtractZip(archive, dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return errors.Join(err, model.NewError(model.KindIO, rmErr))
		}
		return err
	}
	return nil
}

// CoverPath returns the path of the cover image declared in the level's
// info file. An empty string means the level declares no cover.
func CoverPath(levelDir string) (string, error) {
	var data []byte
	var err error
	for _, name := range []string{"Info.dat", "info.dat"} {
		data, err = os.ReadFile(filepath.Join(levelDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", err
	}

	var info struct {
		Legacy string `json:"_coverImageFilename"`
		Cover  string `json:"coverImageFilename"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("parsing info file: %w", err)
	}

	name := info.Legacy
	if name == "" {
		name = info.Cover
	}
	if name == "" {
		return "", nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("cover path %q leaves the level folder", name)
	}
	return filepath.Join(levelDir, name), nil
}
