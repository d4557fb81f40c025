// Package attachment validates and transforms uploaded comment attachments.
// Text files are size-checked and passed through; images are decoded,
// downscaled into a 320x240 bounding box when needed, and re-encoded in
// their detected format. Processing is strict: any image failure rejects the
// attachment rather than silently dropping it.
package attachment

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/commentstream/backend/models"
	"github.com/commentstream/backend/validation"
)

const (
	// MaxTextBytes caps .txt attachments.
	MaxTextBytes = 100 * 1024

	// Bounding box for stored images.
	MaxImageWidth  = 320
	MaxImageHeight = 240

	jpegQuality = 90
)

// Upload is a received attachment before processing.
type Upload struct {
	Filename string
	Bytes    []byte
}

// Processed is the final form of an accepted attachment.
type Processed struct {
	Kind  string
	Bytes []byte
	Name  string
	Size  int64
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Process classifies the upload by filename extension and returns the bytes
// to store plus derived metadata, or the list of violations.
func Process(up Upload) (*Processed, validation.Errors) {
	name := filepath.Base(up.Filename)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case ext == ".txt":
		return processText(name, up.Bytes)
	case imageExts[ext]:
		return processImage(name, up.Bytes)
	default:
		return nil, validation.Errors{{
			Code:    validation.CodeUnsupportedFormat,
			Value:   ext,
			Message: fmt.Sprintf("unsupported attachment format %q", ext),
		}}
	}
}

func processText(name string, data []byte) (*Processed, validation.Errors) {
	if len(data) > MaxTextBytes {
		return nil, validation.Errors{{
			Code:    validation.CodeTooLarge,
			Message: fmt.Sprintf("text attachment exceeds %d bytes", MaxTextBytes),
		}}
	}
	return &Processed{
		Kind:  models.AttachmentKindText,
		Bytes: data,
		Name:  name,
		Size:  int64(len(data)),
	}, nil
}

func processImage(name string, data []byte) (*Processed, validation.Errors) {
	invalid := validation.Errors{{
		Code:    validation.CodeInvalidImage,
		Message: "attachment is not a decodable image",
	}}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalid
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= MaxImageWidth && h <= MaxImageHeight {
		// Within bounds: store the original bytes untouched so the result
		// never grows past the upload.
		return &Processed{
			Kind:  models.AttachmentKindImage,
			Bytes: data,
			Name:  name,
			Size:  int64(len(data)),
		}, nil
	}

	scale := minf(float64(MaxImageWidth)/float64(w), float64(MaxImageHeight)/float64(h))
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	// Flatten onto a white RGBA canvas while scaling; palette and alpha
	// images come out as plain RGB either way.
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&out, dst)
	case "gif":
		err = gif.Encode(&out, dst, &gif.Options{NumColors: 256})
	default:
		return nil, invalid
	}
	if err != nil {
		return nil, invalid
	}

	return &Processed{
		Kind:  models.AttachmentKindImage,
		Bytes: out.Bytes(),
		Name:  name,
		Size:  int64(out.Len()),
	}, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
