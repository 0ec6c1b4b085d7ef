package folio

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProcessImageResizesWideImages(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	img, data, err := processImage(bytes.NewReader(pngBytes(t, 1600, 900)), "My Cover Photo.PNG", now)
	if err != nil {
		t.Fatalf("processImage: %v", err)
	}
	if img.Width != maxImageWidth || img.Height != 450 {
		t.Errorf("size = %dx%d, want 800x450", img.Width, img.Height)
	}
	if img.Filename != "my-cover-photo.jpg" {
		t.Errorf("filename = %q", img.Filename)
	}
	if img.Size != len(data) || img.UploadedAt != "2024-06-01T00:00:00.000Z" {
		t.Errorf("unexpected metadata %+v", img)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("output is not a JPEG: %v", err)
	}
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	img, _, err := processImage(bytes.NewReader(pngBytes(t, 320, 200)), "!!!.png", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 320 || img.Height != 200 {
		t.Errorf("size = %dx%d, want 320x200", img.Width, img.Height)
	}
	if img.Filename != "image.jpg" {
		t.Errorf("filename = %q, want image.jpg", img.Filename)
	}
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	if _, _, err := processImage(bytes.NewReader([]byte("not an image")), "x.png", time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	if got := uniqueFilename(dir, "cover.jpg"); got != "cover.jpg" {
		t.Errorf("got %q", got)
	}
	for _, name := range []string{"cover.jpg", "cover-2.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := uniqueFilename(dir, "cover.jpg"); got != "cover-3.jpg" {
		t.Errorf("got %q, want cover-3.jpg", got)
	}
}

func TestListImagesMissingDir(t *testing.T) {
	images, err := listImages(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(images) != 0 {
		t.Fatalf("listImages = %v, %v", images, err)
	}
}

func TestImageUploadAndDelete(t *testing.T) {
	app, tc := newTestApp(t)
	tc.login("secret")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("_csrf", tc.csrf)
	fw, _ := mw.CreateFormFile("image", "Header.png")
	fw.Write(pngBytes(t, 1000, 500))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/admin/images/upload/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := tc.do(req)
	if rec.Code != http.StatusOK || rec.Body.String() != "images:1" {
		t.Fatalf("upload: %d %q", rec.Code, rec.Body.String())
	}

	images, err := listImages(app.uploadsDir())
	if err != nil || len(images) != 1 {
		t.Fatalf("listImages: %v, %v", images, err)
	}
	if images[0].URL != "/public/uploads/header.jpg" || images[0].Width != 800 {
		t.Errorf("unexpected image %+v", images[0])
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/images/header.jpg/", nil)
	req.Header.Set("X-CSRF-Token", tc.csrf)
	if rec := tc.do(req); rec.Body.String() != "images:0" {
		t.Fatalf("delete: %d %q", rec.Code, rec.Body.String())
	}
}
