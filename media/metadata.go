package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// ReadSourceMetadata extracts dimensions and, when EXIF is present, the
// capture time of an uploaded image. Missing EXIF is not an error.
func ReadSourceMetadata(data []byte) (*SourceMetadata, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to decode image header: %w", err)
	}

	meta := &SourceMetadata{Width: config.Width, Height: config.Height, Format: format}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta, nil
	}
	if taken, err := exifData.DateTime(); err == nil && !taken.IsZero() {
		meta.TakenAt = &taken
	}
	return meta, nil
}
