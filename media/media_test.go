package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(t.TempDir(), map[AssetType]string{AssetTypeFace: "faces"}, "/api/faces/", time.Minute, zap.NewNop())
	require.NoError(t, err)
	return ls
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestLocalStorageSaveGetDelete(t *testing.T) {
	ls := newTestStorage(t)

	rel, err := ls.Save(AssetTypeFace, "owner-1", "a.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "faces/owner-1/a.jpg", rel)

	rc, info, err := ls.Get(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(body))
	assert.Equal(t, int64(len("jpeg bytes")), info.Size())

	require.NoError(t, ls.Delete(rel))
	_, _, err = ls.Get(rel)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// deleting twice is fine
	require.NoError(t, ls.Delete(rel))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ls := newTestStorage(t)

	_, err := ls.Save(AssetTypeFace, "../..", "x.jpg", strings.NewReader(""))
	assert.Error(t, err)
	_, err = ls.Save(AssetTypeFace, "", "../x.jpg", strings.NewReader(""))
	assert.Error(t, err)
	_, err = ls.Save(AssetTypeUnknown, "", "x.jpg", strings.NewReader(""))
	assert.Error(t, err)

	_, err = ls.GetFullPath("../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, ls.Delete("../outside.jpg"))

	_, err = NewLocalStorage(t.TempDir(), map[AssetType]string{AssetTypeFace: "../faces"}, "", time.Minute, zap.NewNop())
	assert.Error(t, err)
}

func TestLocalStorageURLs(t *testing.T) {
	ls := newTestStorage(t)

	assert.Equal(t, "/api/faces/owner-1/a%20b.jpg", ls.URL("faces/owner-1/a b.jpg"))
	assert.Equal(t, "", ls.URL("other/a.jpg"))
	assert.Equal(t, "", ls.URL(""))
	assert.Equal(t, 2, ls.URLCache().Len())

	rel, err := ls.Save(AssetTypeFace, "", "c.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/api/faces/c.jpg", ls.URL(rel))
	assert.Equal(t, 3, ls.URLCache().Len())

	require.NoError(t, ls.Delete(rel))
	assert.Equal(t, 2, ls.URLCache().Len())
}

func TestURLCacheMemoizes(t *testing.T) {
	calls := 0
	c := NewURLCache(time.Minute, func(p string) string {
		calls++
		return "/x/" + p
	})

	assert.Equal(t, "/x/a", c.URL("a"))
	assert.Equal(t, "/x/a", c.URL("a"))
	assert.Equal(t, 1, calls)

	c.Invalidate("a")
	assert.Equal(t, "/x/a", c.URL("a"))
	assert.Equal(t, 2, calls)
}

func TestProcessorSaveFace(t *testing.T) {
	ls := newTestStorage(t)
	p := NewProcessor(ls, 32, zap.NewNop())
	src := testImage(200, 100)

	rel, err := p.SaveFace(src, Region{X1: 10, Y1: 10, X2: 90, Y2: 50}, "owner")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "faces/owner/"))
	assert.True(t, strings.HasSuffix(rel, FaceFileExtension))

	full, err := ls.GetFullPath(rel)
	require.NoError(t, err)
	stored, err := imaging.Open(full)
	require.NoError(t, err)
	assert.Equal(t, 32, stored.Bounds().Dx())
	assert.Equal(t, 16, stored.Bounds().Dy())
}

func TestProcessorSaveFaceClampsRegion(t *testing.T) {
	ls := newTestStorage(t)
	p := NewProcessor(ls, 0, zap.NewNop())
	src := testImage(40, 30)

	rel, err := p.SaveFace(src, Region{X1: 30, Y1: 20, X2: 100, Y2: 100}, "")
	require.NoError(t, err)
	full, err := ls.GetFullPath(rel)
	require.NoError(t, err)
	stored, err := imaging.Open(full)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), stored.Bounds())

	_, err = p.SaveFace(src, Region{X1: 50, Y1: 50, X2: 60, Y2: 60}, "")
	assert.ErrorIs(t, err, ErrInvalidRegion)
	_, err = p.SaveFace(src, Region{X1: 5, Y1: 5, X2: 5, Y2: 20}, "")
	assert.ErrorIs(t, err, ErrInvalidRegion)
}

func TestProcessorDecodeSource(t *testing.T) {
	p := NewProcessor(newTestStorage(t), 0, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(12, 7)))
	img, err := p.DecodeSource(&buf)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	_, err = p.DecodeSource(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestReadSourceMetadata(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(21, 13)))

	meta, err := ReadSourceMetadata(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 21, meta.Width)
	assert.Equal(t, 13, meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.Nil(t, meta.TakenAt)

	_, err = ReadSourceMetadata([]byte("garbage"))
	assert.Error(t, err)
}

func TestRegionAndExtensions(t *testing.T) {
	assert.Equal(t, Region{X1: 1, Y1: 2, X2: 5, Y2: 6}, Region{X1: 5, Y1: 6, X2: 1, Y2: 2}.Normalized())
	assert.True(t, IsRasterImage("photo.JPG"))
	assert.True(t, IsRasterImage(filepath.Join("a", "b.tiff")))
	assert.False(t, IsRasterImage("clip.mp4"))
}
