package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	FaceJpegQuality   = 90
	FaceFileExtension = ".jpg"
)

// Processor turns uploaded source images into stored face crops. It relies
// on a Store implementation for saving the results.
type Processor struct {
	store   Store
	maxSize int
	log     *zap.Logger
}

// NewProcessor creates a processor whose crops are at most maxSize pixels on the longest side
func NewProcessor(store Store, maxSize int, log *zap.Logger) *Processor {
	return &Processor{store: store, maxSize: maxSize, log: log.Named("media.processor")}
}

// DecodeSource decodes an uploaded image, applying its EXIF orientation
func (p *Processor) DecodeSource(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	return img, nil
}

// SaveFace crops region out of src, shrinks it to the configured size and
// stores it. ownerID groups crops on disk. Returns the relative path.
func (p *Processor) SaveFace(src image.Image, region Region, ownerID string) (string, error) {
	rect := image.Rect(region.X1, region.Y1, region.X2, region.Y2).Intersect(src.Bounds())
	if rect.Empty() {
		return "", ErrInvalidRegion
	}

	face := imaging.Crop(src, rect)
	if p.maxSize > 0 && (rect.Dx() > p.maxSize || rect.Dy() > p.maxSize) {
		face = imaging.Fit(face, p.maxSize, p.maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, face, imaging.JPEG, imaging.JPEGQuality(FaceJpegQuality)); err != nil {
		return "", fmt.Errorf("face encoding failed: %w", err)
	}

	relativePath, err := p.store.Save(AssetTypeFace, ownerID, uuid.NewString()+FaceFileExtension, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to store face crop: %w", err)
	}

	p.log.Debug("stored face crop",
		zap.String("path", relativePath),
		zap.Int("width", face.Bounds().Dx()),
		zap.Int("height", face.Bounds().Dy()))
	return relativePath, nil
}
