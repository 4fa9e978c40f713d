// media/types.go
package media

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

type AssetType string

const (
	AssetTypeFace    AssetType = "face"
	AssetTypeUnknown AssetType = "unknown"
)

// ErrInvalidRegion is returned when a face rectangle has no overlap with its source image
var ErrInvalidRegion = errors.New("face region is empty or outside the image")

// Region is a face rectangle in source-image pixel coordinates
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Normalized returns the region with X1<=X2 and Y1<=Y2
func (r Region) Normalized() Region {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// SourceMetadata describes an uploaded source image
type SourceMetadata struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Format  string     `json:"format"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// IsRasterImage checks if the filename has a raster image extension the processor can decode
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}
