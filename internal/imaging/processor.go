// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging processes uploaded images: EXIF orientation correction,
// re-encoding, and resized variant generation using pure Go libraries.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/newsdesk-go/internal/model"
)

// Original describes a processed and saved original image.
type Original struct {
	Width    int
	Height   int
	MimeType string
	Size     int64
	Path     string
}

// Variant describes a resized copy of an original image.
type Variant struct {
	Name   string
	Width  int
	Height int
	Size   int64
	Path   string
}

// Processor saves images under mediaDir using one directory per upload:
//
//	<mediaDir>/<uuid>/<filename>            original
//	<mediaDir>/<uuid>/<variant>_<filename>  resized variants
type Processor struct {
	mediaDir string
}

// NewProcessor creates a new image processor rooted at mediaDir.
func NewProcessor(mediaDir string) *Processor {
	return &Processor{
		mediaDir: mediaDir,
	}
}

// SaveOriginal decodes image data, applies the EXIF orientation, re-encodes it
// without metadata and writes it to disk. The returned dimensions reflect the
// orientation-corrected image.
func (p *Processor) SaveOriginal(data []byte, uuid, filename string) (*Original, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Phone cameras store rotation as EXIF metadata; bake it into the pixels
	// since the pure Go encoders drop EXIF on re-encode.
	orientation := readExifOrientation(bytes.NewReader(data))
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	processed, err := encodeImage(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	path, err := p.saveFile(uuid, filename, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to save original image: %w", err)
	}

	return &Original{
		Width:    width,
		Height:   height,
		MimeType: formatToMimeType(format),
		Size:     int64(len(processed)),
		Path:     path,
	}, nil
}

// MakeVariants renders every configured variant of the saved original.
// Individual variant failures do not abort the rest; an error is returned
// only when every variant fails.
func (p *Processor) MakeVariants(originalPath, uuid, filename string) ([]Variant, error) {
	img, err := imaging.Open(originalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}

	var results []Variant
	var errs []string

	for name, cfg := range model.ImageVariants {
		v, err := p.makeVariant(img, uuid, filename, name, cfg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if v != nil {
			results = append(results, *v)
		}
	}

	if len(errs) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("all variants failed: %s", strings.Join(errs, "; "))
	}
	return results, nil
}

func (p *Processor) makeVariant(img image.Image, uuid, filename, name string, cfg model.ImageVariantConfig) (*Variant, error) {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	// Upscaling a small source buys nothing; skip the variant
	if srcWidth <= cfg.Width && srcHeight <= cfg.Height && !cfg.Crop {
		return nil, nil
	}

	var resized image.Image
	if cfg.Crop {
		resized = imaging.Fill(img, cfg.Width, cfg.Height, imaging.Center, imaging.Lanczos)
	} else {
		resized = imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	format := detectFormatFromFilename(filename)
	processed, err := encodeImage(resized, format, cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}

	path, err := p.saveFile(uuid, VariantFilename(filename, name), processed)
	if err != nil {
		return nil, fmt.Errorf("failed to save variant: %w", err)
	}

	resBounds := resized.Bounds()
	return &Variant{
		Name:   name,
		Width:  resBounds.Dx(),
		Height: resBounds.Dy(),
		Size:   int64(len(processed)),
		Path:   path,
	}, nil
}

// VariantFilename returns the on-disk name of a variant file.
func VariantFilename(filename, variant string) string {
	return variant + "_" + filename
}

// Dimensions returns the pixel dimensions of an image file without decoding
// the full image.
func (p *Processor) Dimensions(path string) (width, height int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image config: %w", err)
	}

	return config.Width, config.Height, nil
}

// DetectMimeType detects the MIME type of image data from its content.
func (p *Processor) DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType returns types like "image/jpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// DeleteFiles removes the upload directory of a media item, original and
// variants included.
func (p *Processor) DeleteFiles(uuid string) error {
	dir := filepath.Join(p.mediaDir, filepath.Base(uuid))
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media files: %w", err)
	}
	return nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// Orientation values:
// 1: Normal
// 2: Flip horizontal
// 3: Rotate 180°
// 4: Flip vertical
// 5: Rotate 90° CW + flip horizontal
// 6: Rotate 90° CW
// 7: Rotate 90° CCW + flip horizontal
// 8: Rotate 90° CCW
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image to bytes with the specified format and quality.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// WebP encoding is not available in pure Go; emit JPEG
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// detectFormatFromFilename extracts format from filename extension.
func detectFormatFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "jpeg"
	}
}

// formatToMimeType converts format string to MIME type.
func formatToMimeType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return model.MimeTypeJPEG
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		return model.MimeTypeWebP
	default:
		return "application/octet-stream"
	}
}

// saveFile writes image data under <mediaDir>/<uuid>/<filename>, rejecting
// path traversal in either component.
func (p *Processor) saveFile(uuid, filename string, data []byte) (string, error) {
	safeFilename := filepath.Base(filename)
	if safeFilename == "." || safeFilename == ".." || safeFilename == "" {
		return "", fmt.Errorf("invalid filename")
	}

	safeUUID := filepath.Base(uuid)
	if safeUUID == "." || safeUUID == ".." || safeUUID == "" {
		return "", fmt.Errorf("invalid uuid")
	}

	absBase, err := filepath.Abs(p.mediaDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media directory: %w", err)
	}

	absTarget := filepath.Join(absBase, safeUUID)
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(absTarget, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(absTarget, safeFilename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filePath, nil
}
