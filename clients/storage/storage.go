// Package storage stores recordings, voice samples and signatures in the firebase bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

// Object is a stored blob with both of its addresses.
type Object struct {
	Path      string
	PublicURL string
	GCSURI    string
}

// ObjectInfo is what listing returns.
type ObjectInfo struct {
	Path    string
	Created time.Time
}

// bucket is the part of a gcs bucket handle the client relies on.
type bucket interface {
	writer(ctx context.Context, path, contentType string) io.WriteCloser
	delete(ctx context.Context, path string) error
	objects(ctx context.Context, prefix string) objectIterator
}

type objectIterator interface {
	Next() (*gcs.ObjectAttrs, error)
}

type gcsBucket struct {
	handle *gcs.BucketHandle
}

func (b gcsBucket) writer(ctx context.Context, path, contentType string) io.WriteCloser {
	w := b.handle.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (b gcsBucket) delete(ctx context.Context, path string) error {
	return b.handle.Object(path).Delete(ctx)
}

func (b gcsBucket) objects(ctx context.Context, prefix string) objectIterator {
	return b.handle.Objects(ctx, &gcs.Query{Prefix: prefix})
}

type Client struct {
	bucket bucket
	name   string
}

/*
* Resolve the default bucket of the firebase app
* The bucket name comes from the app config
 */
func New(ctx context.Context, app *firebase.App, bucketName string) (*Client, error) {
	fs, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("while opening firebase storage: %w", err)
	}
	handle, err := fs.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("while resolving default bucket: %w", err)
	}
	return &Client{bucket: gcsBucket{handle: handle}, name: bucketName}, nil
}

func PublicURL(bucket, path string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + (&url.URL{Path: path}).EscapedPath()
}

func GCSURI(bucket, path string) string {
	return "gs://" + bucket + "/" + path
}

// PathFromURL returns the object path of a public or gs:// URL in bucket, or "" when it does not point there.
func PathFromURL(bucket, raw string) string {
	for _, prefix := range []string{"https://storage.googleapis.com/" + bucket + "/", "gs://" + bucket + "/"} {
		if strings.HasPrefix(raw, prefix) {
			p := strings.TrimPrefix(raw, prefix)
			if unescaped, err := url.PathUnescape(p); err == nil {
				return unescaped
			}
			return p
		}
	}
	return ""
}

func (c *Client) Bucket() string {
	return c.name
}

// Upload writes r to path. The writer is closed before the object is considered stored.
func (c *Client) Upload(ctx context.Context, path, contentType string, r io.Reader) (*Object, error) {
	w := c.bucket.writer(ctx, path, contentType)

	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("while writing object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("while closing object writer for %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int64("size", size).Msg("Object uploaded")
	return &Object{
		Path:      path,
		PublicURL: PublicURL(c.name, path),
		GCSURI:    GCSURI(c.name, path),
	}, nil
}

// Delete removes the object at path. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	err := c.bucket.delete(ctx, path)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("while deleting object %s: %w", path, err)
	}
	return nil
}

// List returns every object under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	it := c.bucket.objects(ctx, prefix)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing objects under %s: %w", prefix, err)
		}
		out = append(out, ObjectInfo{Path: attrs.Name, Created: attrs.Created})
	}
	return out, nil
}
