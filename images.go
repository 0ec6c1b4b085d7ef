package folio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// processImage decodes a featured image, scales it down to maxImageWidth and
// re-encodes it as JPEG.
func processImage(src io.Reader, originalName string, now time.Time) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		nh := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img, w, h = dst, maxImageWidth, nh
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	name := imageBaseName(originalName)
	return Image{
		Filename:     name + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   formatTimestamp(now),
	}, buf.Bytes(), nil
}

// imageBaseName slugifies the file name without its extension. Names that
// slugify to nothing fall back to "image".
func imageBaseName(name string) string {
	base := Slugify(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "" {
		return "image"
	}
	return base
}

func (a *App) uploadsDir() string {
	return filepath.Join(a.Config.StaticDir, uploadsSubdir)
}

// uniqueFilename appends a counter until name does not exist in dir.
func uniqueFilename(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
}

// listImages reads the uploads directory, newest first. A missing directory
// means no uploads yet.
func listImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Image{}, nil
		}
		return nil, fmt.Errorf("list images: %w", err)
	}
	images := make([]Image, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		img := Image{
			Filename:     e.Name(),
			OriginalName: e.Name(),
			URL:          imageURL(e.Name()),
			Size:         int(info.Size()),
			UploadedAt:   formatTimestamp(info.ModTime()),
		}
		if f, err := os.Open(filepath.Join(dir, e.Name())); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				img.Width, img.Height = cfg.Width, cfg.Height
			}
			f.Close()
		}
		images = append(images, img)
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].UploadedAt > images[j].UploadedAt
	})
	return images, nil
}

func imageURL(filename string) string {
	return path.Join("/public", uploadsSubdir, filename)
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(io.LimitReader(src, maxUploadSize), file.Filename, timeNow())
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	dir := a.uploadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	img.Filename = uniqueFilename(dir, img.Filename)
	img.URL = imageURL(img.Filename)
	if err := os.WriteFile(filepath.Join(dir, img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	a.Log.Info().Str("file", img.Filename).Int("width", img.Width).Int("bytes", img.Size).Msg("image uploaded")
	return a.renderImageList(c)
}

func (a *App) handleImageDelete(c echo.Context) error {
	name := filepath.Base(c.Param("filename"))
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, "..") {
		return c.String(http.StatusBadRequest, "Filename required")
	}
	if err := os.Remove(filepath.Join(a.uploadsDir(), name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete image: %w", err)
	}
	return a.renderImageList(c)
}

func (a *App) handleImageList(c echo.Context) error {
	return a.renderImageList(c)
}

func (a *App) renderImageList(c echo.Context) error {
	images, err := listImages(a.uploadsDir())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminImages(images, CsrfToken(c)))
}
