package filehandler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewUpload_PNG(t *testing.T) {
	u, err := NewUpload("street.png", encodePNG(t, 1200, 800))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", u.MIMEType)
	}
	if u.Width != 1200 || u.Height != 800 {
		t.Errorf("expected 1200x800, got %dx%d", u.Width, u.Height)
	}
	if !strings.HasPrefix(u.DataURL(), "data:image/png;base64,") {
		t.Errorf("unexpected data URL prefix: %.30s", u.DataURL())
	}
}

func TestNewUpload_SniffsContentNotName(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	u, err := NewUpload("misnamed.png", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.MIMEType != "image/jpeg" {
		t.Errorf("expected sniffed image/jpeg, got %s", u.MIMEType)
	}
}

func TestNewUpload_Rejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{"text", "notes.jpg", []byte("hello, this is not a photo"), ErrNotImage},
		{"pdf", "doc.png", []byte("%PDF-1.4 fake"), ErrNotImage},
		{"empty", "a.png", nil, ErrEmpty},
		{"truncated png", "a.png", encodePNG(t, 4, 4)[:20], ErrNotImage},
		{"heic name without container", "a.heic", []byte("definitely not heic"), ErrNotImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewUpload(tt.file, tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewUpload_TooLarge(t *testing.T) {
	if _, err := NewUpload("big.png", make([]byte, MaxUploadBytes+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestNewUpload_HEICByContainer(t *testing.T) {
	data := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
	u, err := NewUpload("IMG_0001.HEIC", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.MIMEType != "image/heic" || u.Width != 0 {
		t.Errorf("expected heic without dimensions, got %s %dx%d", u.MIMEType, u.Width, u.Height)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room.png")
	if err := os.WriteFile(path, encodePNG(t, 10, 20), 0o644); err != nil {
		t.Fatal(err)
	}

	u, err := ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "room.png" || u.Height != 20 {
		t.Errorf("unexpected upload %+v", u)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDecodeBase64Image(t *testing.T) {
	raw := encodePNG(t, 2, 2)

	mimeType, data, err := DecodeBase64Image(EncodeDataURL("image/png", raw))
	if err != nil || mimeType != "image/png" || !bytes.Equal(data, raw) {
		t.Errorf("data URL: got %s, %d bytes, %v", mimeType, len(data), err)
	}

	u := &Upload{MIMEType: "image/png", Data: raw}
	mimeType, data, err = DecodeBase64Image(u.Base64())
	if err != nil || mimeType != "image/png" || !bytes.Equal(data, raw) {
		t.Errorf("raw base64: got %s, %d bytes, %v", mimeType, len(data), err)
	}

	for _, bad := range []string{"data:image/png;base64", "data:image/png,abc", "!!!", ""} {
		if _, _, err := DecodeBase64Image(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
		wantErr  bool
	}{
		{".jpg", "image/jpeg", false},
		{".JPEG", "image/jpeg", false},
		{".webp", "image/webp", false},
		{".heic", "image/heic", false},
		{".mp4", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := GetMIMEType(tt.ext)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetMIMEType(%q) error = %v, wantErr %v", tt.ext, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("GetMIMEType(%q) = %q, want %q", tt.ext, got, tt.expected)
			}
		})
	}
}

func TestImageMetadataCamera(t *testing.T) {
	m := &ImageMetadata{CameraMake: "Apple", CameraModel: "iPhone 15 Pro"}
	if got := m.Camera(); got != "Apple iPhone 15 Pro" {
		t.Errorf("Camera() = %q", got)
	}
	if got := (&ImageMetadata{}).Camera(); got != "" {
		t.Errorf("expected empty camera, got %q", got)
	}
}
