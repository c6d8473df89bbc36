package work

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// FileStore turns an upload into a storable attachment.
type FileStore interface {
	StoreFile(ctx context.Context, it Item, index int, u Upload) (File, error)
}

// DetectMimeType returns the declared media type, or the sniffed one when nothing useful was declared.
func DetectMimeType(declared string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if mt == "" || mt == "application/octet-stream" {
		mt = strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
	}
	return mt
}

// EmbeddedFiles stores attachments inline as data URLs. Images are downscaled to MaxDimension
// and re-encoded; anything else keeps its original bytes.
type EmbeddedFiles struct {
	MaxDimension int
	JPEGQuality  int
}

var _ FileStore = EmbeddedFiles{}

func (ef EmbeddedFiles) StoreFile(_ context.Context, _ Item, _ int, u Upload) (File, error) {
	data := u.Data
	mt := DetectMimeType(u.MimeType, u.Data)
	if mt == "image/jpeg" || mt == "image/jpg" || mt == "image/png" {
		if shrunk, err := ef.downscale(data, mt); err == nil {
			data = shrunk
		}
		// undecodable images are kept as they are
	}
	return File{
		Name:     u.Name,
		URL:      DataURL(mt, data),
		MimeType: mt,
	}, nil
}

// downscale fits the image into a MaxDimension square, keeping its aspect ratio.
func (ef EmbeddedFiles) downscale(data []byte, mt string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	maxDim := ef.MaxDimension
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return data, nil
	}

	nw, nh := maxDim, maxDim
	if w >= h {
		nh = h * maxDim / w
	} else {
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if mt == "image/png" {
		err = png.Encode(&buf, dst)
	} else {
		quality := ef.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, errors.Wrap(err, "encoding image")
	}
	return buf.Bytes(), nil
}

// DataURL embeds data in a base64 data URL.
func DataURL(mt string, data []byte) string {
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}
