package remotedb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/work"
)

type uploadFunc func(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)

// B2Files uploads attachments to a B2 bucket and stores their public URL.
// When an upload fails the attachment is kept by the fallback store instead.
type B2Files struct {
	upload   uploadFunc
	fallback work.FileStore
	log      core.Logger
}

var _ work.FileStore = (*B2Files)(nil)

func NewB2Files(ctx context.Context, conf core.ObjectsConfig, fallback work.FileStore, log core.Logger) (*B2Files, error) {
	client, err := b2.NewClient(ctx, conf.KeyID, conf.AppKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}

	upload := func(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
		w := bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
		if _, err := io.Copy(w, r); err != nil {
			_ = w.Close()
			return "", errors.Wrap(err, "writing object")
		}
		if err := w.Close(); err != nil {
			return "", errors.Wrap(err, "closing object")
		}
		return fmt.Sprintf("%s/file/%s/%s", bucket.BaseURL(), bucket.Name(), key), nil
	}
	return &B2Files{upload: upload, fallback: fallback, log: log}, nil
}

func (bf *B2Files) StoreFile(ctx context.Context, it work.Item, index int, u work.Upload) (work.File, error) {
	mt := work.DetectMimeType(u.MimeType, u.Data)
	key := ObjectKey(it, index, u.Name)
	url, err := bf.upload(ctx, key, mt, bytes.NewReader(u.Data))
	if err != nil {
		bf.log.Warn("attachment upload failed, embedding it", map[string]interface{}{"key": key}, err)
		return bf.fallback.StoreFile(ctx, it, index, u)
	}
	return work.File{Name: u.Name, URL: url, MimeType: mt}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps letters, digits, dots, dashes and underscores. Anything else becomes an underscore.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" || strings.Trim(name, "._") == "" {
		return "file"
	}
	return name
}

// ObjectKey is `YYYY/MM/DD/<subject>/<type>/<millis>_<index>_<filename>`, dated by the item's date.
func ObjectKey(it work.Item, index int, filename string) string {
	date := strings.ReplaceAll(it.Date, "-", "/")
	return fmt.Sprintf("%s/%s/%s/%d_%d_%s",
		date,
		SanitizeFilename(string(it.Subject)),
		SanitizeFilename(string(it.Type)),
		it.CreatedAt,
		index,
		SanitizeFilename(filename),
	)
}
