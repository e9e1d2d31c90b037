package share

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fpang/redo-ai/internal/composite"
)

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := &s3.PresignOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://example.test/" + *in.Bucket + "/" + *in.Key + "?sig=1"}, nil
}

func artifact() *composite.Artifact {
	return &composite.Artifact{Data: []byte("\xff\xd8jpeg"), Width: 10, Height: 5}
}

func TestUnsupported(t *testing.T) {
	for _, s := range []Sharer{Unsupported{}, NewSharer(nil, "", 0), NewSharer(nil, "bucket", 0)} {
		if _, err := s.Share(context.Background(), artifact()); !errors.Is(err, ErrShareUnsupported) {
			t.Errorf("expected ErrShareUnsupported, got %v", err)
		}
	}
}

func TestS3Sharer_Share(t *testing.T) {
	put := &fakePutter{}
	pre := &fakePresigner{}
	s := newS3Sharer(put, pre, "shares-bucket", time.Hour)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	link, err := s.Share(context.Background(), artifact())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := *put.in.Key
	if !strings.HasPrefix(key, "shares/") || !strings.HasSuffix(key, "/"+composite.Filename) {
		t.Errorf("unexpected key %q", key)
	}
	if *put.in.ContentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", *put.in.ContentType)
	}
	if !strings.Contains(*put.in.ContentDisposition, composite.Filename) {
		t.Errorf("expected disposition naming the file, got %s", *put.in.ContentDisposition)
	}
	if *put.in.Tagging != "Project=redo-ai" {
		t.Errorf("expected project tag, got %s", *put.in.Tagging)
	}
	if !strings.Contains(link.URL, key) {
		t.Errorf("link %q does not point at %q", link.URL, key)
	}
	if pre.expires != time.Hour || !link.Expires.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected expiry %s / %s", pre.expires, link.Expires)
	}
	if link.Title != Title || link.Text != Text {
		t.Errorf("unexpected title/text %+v", link)
	}
}

func TestS3Sharer_Errors(t *testing.T) {
	cause := errors.New("AccessDenied")
	s := newS3Sharer(&fakePutter{err: cause}, &fakePresigner{}, "b", 0)
	if _, err := s.Share(context.Background(), artifact()); !errors.Is(err, cause) {
		t.Errorf("expected wrapped upload error, got %v", err)
	}
	if s.expiry != DefaultExpiry {
		t.Errorf("expected default expiry, got %s", s.expiry)
	}
	if _, err := s.Share(context.Background(), &composite.Artifact{}); err == nil {
		t.Error("expected error for an empty artifact")
	}
}

func TestDownload(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Download(rec, artifact()); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=redo-ai-before-after.jpg` {
		t.Errorf("unexpected disposition %q", got)
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rec.Body.Bytes(), artifact().Data) {
		t.Error("body mismatch")
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveFile(dir, artifact())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, composite.Filename) {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, artifact().Data) {
		t.Errorf("saved file mismatch (%v)", err)
	}
}

func TestBundle(t *testing.T) {
	var buf bytes.Buffer
	original := Image{Data: bytes.Repeat([]byte("png-ish "), 200), MIMEType: "image/png"}
	generated := Image{Data: []byte("\xff\xd8generated"), MIMEType: "image/jpeg"}
	if err := Bundle(&buf, original, generated, artifact()); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]struct {
		data   []byte
		method uint16
	}{
		"original.png":     {original.Data, zip.Deflate},
		"redo-ai.jpg":      {generated.Data, zip.Store},
		composite.Filename: {artifact().Data, zip.Store},
	}
	if len(zr.File) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(zr.File))
	}
	for _, f := range zr.File {
		w, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected entry %s", f.Name)
			continue
		}
		if f.Method != w.method {
			t.Errorf("%s: expected method %d, got %d", f.Name, w.method, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(got, w.data) {
			t.Errorf("%s: content mismatch", f.Name)
		}
	}
}

func TestBundle_RequiresBothImages(t *testing.T) {
	if err := Bundle(io.Discard, Image{}, Image{Data: []byte{1}}, nil); err == nil {
		t.Error("expected error without the original")
	}
}
