package source

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/httputil"
	"github.com/matzehuels/inksite/pkg/manifest"
)

// HTTP is an export directory served over HTTP, with the same layout as
// [Dir] below a base URL.
type HTTP struct {
	base   string
	client *httputil.Client
}

// NewHTTP returns the store at baseURL. A nil client uses
// [httputil.DefaultPolicy] and no extra headers.
func NewHTTP(baseURL string, client *httputil.Client) *HTTP {
	if client == nil {
		client = httputil.NewClient(nil, nil, httputil.DefaultPolicy)
	}
	return &HTTP{base: strings.TrimSuffix(baseURL, "/"), client: client}
}

// IsURL reports whether s names an HTTP store rather than a directory.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// URL returns the base URL.
func (h *HTTP) URL() string { return h.base }

// List fetches documents.json.
func (h *HTTP) List(ctx context.Context) ([]manifest.Record, error) {
	url := h.base + "/" + IndexFile
	data, err := h.client.Get(ctx, url)
	if err != nil {
		return nil, h.fail(err, "list", url)
	}
	var records []manifest.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeSourceIntegrity, err, "decode record listing")
	}
	return records, nil
}

// Download fetches <id>.zip. A listed document without an archive is a
// source integrity error.
func (h *HTTP) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	url := h.base + "/" + id.String() + ".zip"
	data, err := h.client.Get(ctx, url)
	if errors.Is(err, httputil.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeSourceIntegrity, "no archive for document %s", id)
	}
	if err != nil {
		return nil, h.fail(err, "download", url)
	}
	return data, nil
}

func (h *HTTP) fail(err error, op, url string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.IO(err, op, url)
}

var _ Source = (*HTTP)(nil)
