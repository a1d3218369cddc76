// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/newsdesk-go/internal/imaging"
	"github.com/olegiv/newsdesk-go/internal/model"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/media"

// allowedMimeTypes restricts uploads to formats the variant pipeline can
// decode.
var allowedMimeTypes = map[string]bool{
	model.MimeTypeJPEG: true,
	model.MimeTypePNG:  true,
	model.MimeTypeGIF:  true,
	model.MimeTypeWebP: true,
}

// URL returns the public path for a stored file. An empty variant or
// "original" addresses the file as uploaded.
func URL(fileUUID, filename, variant string) string {
	if variant == "" || variant == "original" {
		return URLPrefix + "/" + fileUUID + "/" + filename
	}
	return URLPrefix + "/" + fileUUID + "/" + imaging.VariantFilename(filename, variant)
}

// DiskStore keeps uploads on the local filesystem under UUID-named
// directories, one directory per upload holding the original and its
// variants.
type DiskStore struct {
	processor *imaging.Processor
	logger    *slog.Logger
}

// NewDiskStore creates a DiskStore rooted at mediaDir.
func NewDiskStore(mediaDir string, logger *slog.Logger) *DiskStore {
	return &DiskStore{
		processor: imaging.NewProcessor(mediaDir),
		logger:    logger,
	}
}

// Save validates the upload by content, writes the orientation-corrected
// original, then generates resized variants. Variant failures do not fail
// the save: the original is on disk and variants can be regenerated.
func (d *DiskStore) Save(data []byte, originalName string) (*SavedFile, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	// Sniff the type from the bytes; never trust the client-supplied name.
	mimeType := d.processor.DetectMimeType(data)
	if !allowedMimeTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	fileUUID := uuid.New().String()
	filename := sanitizeFilename(originalName, mimeType)

	original, err := d.processor.SaveOriginal(data, fileUUID, filename)
	if err != nil {
		return nil, fmt.Errorf("saving original: %w", err)
	}

	saved := &SavedFile{
		UUID:     fileUUID,
		Filename: filename,
		URL:      URL(fileUUID, filename, ""),
		MimeType: original.MimeType,
		Size:     original.Size,
		Width:    original.Width,
		Height:   original.Height,
	}

	variants, err := d.processor.MakeVariants(original.Path, fileUUID, filename)
	if err != nil {
		d.logger.Warn("media variant generation failed", "uuid", fileUUID, "error", err)
	}
	saved.Variants = variants

	return saved, nil
}

// Delete removes the upload directory behind url, the original and all
// variants together.
func (d *DiskStore) Delete(url string) error {
	fileUUID, ok := uuidFromURL(url)
	if !ok {
		return fmt.Errorf("media: malformed media URL %q", url)
	}
	return d.processor.DeleteFiles(fileUUID)
}

func uuidFromURL(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, URLPrefix+"/")
	if !ok {
		return "", false
	}
	fileUUID, _, _ := strings.Cut(rest, "/")
	if fileUUID == "" {
		return "", false
	}
	return fileUUID, true
}

var filenameSanitizer = strings.NewReplacer(
	" ", "-",
	"'", "",
	`"`, "",
	"<", "",
	">", "",
	"&", "",
	"#", "",
	"?", "",
	"%", "",
)

// sanitizeFilename strips path components and URL-hostile characters, and
// guarantees an extension matching the detected type.
func sanitizeFilename(name, mimeType string) string {
	name = filepath.Base(name)
	name = filenameSanitizer.Replace(name)
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	if filepath.Ext(name) == "" {
		name += extensionForMime(mimeType)
	}
	return name
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case model.MimeTypeJPEG:
		return ".jpg"
	case model.MimeTypePNG:
		return ".png"
	case model.MimeTypeGIF:
		return ".gif"
	case model.MimeTypeWebP:
		return ".webp"
	}
	return ".bin"
}
