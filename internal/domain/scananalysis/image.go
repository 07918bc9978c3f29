package scananalysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/blobstore"
)

// ImageLoader resolves a scan's image_url into bytes and a MIME type.
type ImageLoader interface {
	Load(ctx context.Context, url string) ([]byte, string, error)
}

// URLImageLoader reads data: URLs inline, blob:// URLs from the blob store and
// http(s) URLs over the network.
type URLImageLoader struct {
	blobs blobstore.BlobStore
	http  *resty.Client
}

func NewURLImageLoader(blobs blobstore.BlobStore, timeout time.Duration) *URLImageLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &URLImageLoader{
		blobs: blobs,
		http:  resty.New().SetTimeout(timeout).SetRetryCount(0),
	}
}

func (l *URLImageLoader) Load(ctx context.Context, url string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(url, "data:"):
		return decodeDataURL(url)
	case strings.HasPrefix(url, blobstore.Scheme):
		return l.loadBlob(ctx, url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return l.fetch(ctx, url)
	}
	return nil, "", fmt.Errorf("%w: unsupported image url", ErrImageUnavailable)
}

func decodeDataURL(url string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("%w: data url is not base64", ErrImageUnavailable)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	return data, strings.TrimSuffix(header, ";base64"), nil
}

func (l *URLImageLoader) loadBlob(ctx context.Context, url string) ([]byte, string, error) {
	id, _ := blobstore.IDFromURL(url)
	if l.blobs == nil {
		return nil, "", fmt.Errorf("%w: blob store not configured", ErrImageUnavailable)
	}
	data, meta, err := l.blobs.Download(ctx, id)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, "", fmt.Errorf("%w: blob %s not found", ErrImageUnavailable, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	return data, meta.ContentType, nil
}

func (l *URLImageLoader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := l.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("%w: status %d", ErrImageUnavailable, resp.StatusCode())
	}
	mime := resp.Header().Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return resp.Body(), strings.TrimSpace(mime), nil
}
