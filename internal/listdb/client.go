// Package listdb talks to the remote list store that maps a small numeric
// key to a shared list of map codes.
//
// The store is a JSON document database reached over HTTP: every key is a
// document at {base}/{key}.json holding one JSON string, the comma-joined
// codes. The next free key lives in {base}/index.json, also as a JSON
// string, and wraps around after 255.
package listdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	bshttp "github.com/handiism/beat-sharer/internal/http"
	"github.com/handiism/beat-sharer/internal/model"
)

// ErrKeyNotFound is returned (wrapped as ItemNotFound) when a key holds no list.
var ErrKeyNotFound = errors.New("list key not found")

const indexDoc = "index"

// Client reads and writes shared code lists.
type Client struct {
	http    *bshttp.Client
	baseURL string
	secret  string
}

// NewClient creates a Client for the store at baseURL. secret is sent as the
// auth query parameter when non-empty.
func NewClient(httpClient *bshttp.Client, baseURL, secret string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}
}

// GetList returns the codes stored under key.
func (c *Client) GetList(ctx context.Context, key uint8) ([]string, error) {
	value, err := c.getString(ctx, strconv.Itoa(int(key)))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, model.NewError(model.KindNotFound, fmt.Errorf("key %d: %w", key, ErrKeyNotFound))
	}
	return SplitCodes(*value), nil
}

// PutList stores codes under key, replacing whatever was there.
func (c *Client) PutList(ctx context.Context, key uint8, codes []string) error {
	return c.put(ctx, strconv.Itoa(int(key)), JoinCodes(codes))
}

// NextKey reserves a key: it reads the current index, stores the index plus
// one (wrapping at 256) and returns the value it read. A store without an
// index starts at 0.
//
// The read and the write are two requests; two clients reserving at the same
// moment can receive the same key.
func (c *Client) NextKey(ctx context.Context) (uint8, error) {
	value, err := c.getString(ctx, indexDoc)
	if err != nil {
		return 0, err
	}

	var key uint8
	if value != nil {
		n, err := strconv.ParseUint(strings.TrimSpace(*value), 10, 8)
		if err != nil {
			return 0, model.NewError(model.KindTextDecode, fmt.Errorf("index %q: %w", *value, err))
		}
		key = uint8(n)
	}

	if err := c.put(ctx, indexDoc, strconv.Itoa(int(key+1))); err != nil {
		return 0, err
	}
	return key, nil
}

// getString fetches a document holding a JSON string. A nil result means the
// document is empty (JSON null).
func (c *Client) getString(ctx context.Context, doc string) (*string, error) {
	body, err := c.http.Get(ctx, c.docURL(doc))
	if err != nil {
		return nil, model.NewError(model.KindTransport, err)
	}
	if !utf8.Valid(body) {
		return nil, model.Errorf(model.KindTextDecode, "%s: response is not valid UTF-8", doc)
	}

	var value *string
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, model.NewError(model.KindTextDecode, fmt.Errorf("%s: %w", doc, err))
	}
	return value, nil
}

func (c *Client) put(ctx context.Context, doc, value string) error {
	if err := c.http.PutJSON(ctx, c.docURL(doc), value); err != nil {
		return model.NewError(model.KindTransport, err)
	}
	return nil
}

func (c *Client) docURL(doc string) string {
	addr := fmt.Sprintf("%s/%s.json", c.baseURL, doc)
	if c.secret != "" {
		addr += "?auth=" + url.QueryEscape(c.secret)
	}
	return addr
}

// JoinCodes encodes codes the way they are stored.
func JoinCodes(codes []string) string {
	return strings.Join(codes, ",")
}

// SplitCodes decodes a stored list, dropping empty entries and whitespace.
func SplitCodes(value string) []string {
	var codes []string
	for code := range strings.SplitSeq(value, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
