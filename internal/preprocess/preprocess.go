// Package preprocess normalizes heterogeneous uploads (images, PDFs) into
// base64 data URLs ready for transmission to the model endpoint.
package preprocess

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	fitz "github.com/gen2brain/go-fitz"

	"fapiao/internal/domain"
)

// jpegQuality matches the rasterization quality used for PDF pages.
const jpegQuality = 95

// InputFile is one uploaded file before encoding.
type InputFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// EncodedFile is the uniform encoded form sent upstream.
type EncodedFile struct {
	Name    string
	MIME    string
	DataURL string
}

// Encoder converts input files into encoded payloads.
type Encoder struct {
	// MaxImageDim bounds the longer image side; larger images are
	// downscaled before encoding to keep request payloads reasonable.
	// Zero disables downscaling.
	MaxImageDim int
}

// Convert encodes every file, preserving input order. Any unreadable or
// unsupported file aborts the whole batch with an InputError naming it: a
// silently skipped file would break record count expectations downstream.
func (e *Encoder) Convert(files []InputFile) ([]EncodedFile, error) {
	encoded := make([]EncodedFile, 0, len(files))
	for _, f := range files {
		out, err := e.Encode(f)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, out)
	}
	return encoded, nil
}

// Encode converts a single file. PDFs are rasterized page by page; only the
// last rendered page is retained per source file. That is a known
// limitation of multi-page PDFs, kept deliberately rather than fixed.
func (e *Encoder) Encode(f InputFile) (EncodedFile, error) {
	if len(f.Data) == 0 {
		return EncodedFile{}, domain.NewInputError(f.Name, fmt.Errorf("empty file"))
	}

	if isPDF(f) {
		img, err := e.lastPageImage(f)
		if err != nil {
			return EncodedFile{}, domain.NewInputError(f.Name, err)
		}
		return e.encodeImage(f.Name, img)
	}

	if isImage(f) {
		img, err := imaging.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return EncodedFile{}, domain.NewInputError(f.Name, fmt.Errorf("decoding image: %w", err))
		}
		return e.encodeImage(f.Name, img)
	}

	return EncodedFile{}, domain.NewInputError(f.Name, domain.ErrUnsupportedFileType)
}

func (e *Encoder) lastPageImage(f InputFile) (image.Image, error) {
	doc, err := fitz.NewFromMemory(f.Data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer func() { _ = doc.Close() }()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	var img image.Image
	for page := 0; page < pages; page++ {
		img, err = doc.Image(page)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", page+1, err)
		}
	}
	return img, nil
}

func (e *Encoder) encodeImage(name string, img image.Image) (EncodedFile, error) {
	if e.MaxImageDim > 0 {
		bounds := img.Bounds()
		if bounds.Dx() > e.MaxImageDim || bounds.Dy() > e.MaxImageDim {
			if bounds.Dx() > bounds.Dy() {
				img = imaging.Resize(img, e.MaxImageDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, e.MaxImageDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return EncodedFile{}, domain.NewInputError(name, fmt.Errorf("encoding JPEG: %w", err))
	}

	return EncodedFile{
		Name:    name,
		MIME:    "image/jpeg",
		DataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func isPDF(f InputFile) bool {
	if strings.HasPrefix(f.ContentType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(f.Name), ".pdf")
}

func isImage(f InputFile) bool {
	if strings.HasPrefix(f.ContentType, "image/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}
