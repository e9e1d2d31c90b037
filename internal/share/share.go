// Package share hands a finished before/after composite to the user: as a
// file download, a shareable link, or a zip of all three images.
package share

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/s3util"
)

const (
	// Title and Text accompany a shared link.
	Title = "My Redo AI transformation"
	Text  = "See how AI reimagined this place. Made with Redo AI."

	// DefaultExpiry is how long a shared link stays valid.
	DefaultExpiry = 24 * time.Hour

	keyPrefix = "shares/"
)

// ErrShareUnsupported is returned when sharing is not available. It is
// shown to the user as is.
var ErrShareUnsupported = errors.New("sharing is not supported here; download the image instead")

// Link is a shared composite.
type Link struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`
	Expires time.Time `json:"expires"`
}

// Sharer publishes a composite and returns a link to it.
type Sharer interface {
	Share(ctx context.Context, a *composite.Artifact) (*Link, error)
}

// Unsupported is the Sharer used when no share bucket is configured.
type Unsupported struct{}

func (Unsupported) Share(context.Context, *composite.Artifact) (*Link, error) {
	return nil, ErrShareUnsupported
}

// S3Sharer uploads composites to a bucket and links to them with presigned
// URLs.
type S3Sharer struct {
	client    s3util.ObjectPutter
	presigner s3util.GetPresigner
	bucket    string
	expiry    time.Duration
	now       func() time.Time
}

// NewSharer returns an S3Sharer for bucket, or Unsupported when bucket is
// empty.
func NewSharer(client *s3.Client, bucket string, expiry time.Duration) Sharer {
	if bucket == "" || client == nil {
		return Unsupported{}
	}
	return newS3Sharer(client, s3.NewPresignClient(client), bucket, expiry)
}

func newS3Sharer(client s3util.ObjectPutter, presigner s3util.GetPresigner, bucket string, expiry time.Duration) *S3Sharer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &S3Sharer{client: client, presigner: presigner, bucket: bucket, expiry: expiry, now: time.Now}
}

// Share implements Sharer.
func (s *S3Sharer) Share(ctx context.Context, a *composite.Artifact) (*Link, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, errors.New("nothing to share")
	}
	key := keyPrefix + uuid.NewString() + "/" + composite.Filename

	if err := s3util.PutBytes(ctx, s.client, s.bucket, key, a.MIMEType(), attachment(composite.Filename), a.Data); err != nil {
		return nil, fmt.Errorf("failed to upload composite: %w", err)
	}
	url, err := s3util.GeneratePresignedURL(ctx, s.presigner, s.bucket, key, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign share link: %w", err)
	}

	log.Info().Str("key", key).Int("bytes", len(a.Data)).Dur("expiry", s.expiry).Msg("Composite shared")
	return &Link{URL: url, Title: Title, Text: Text, Expires: s.now().Add(s.expiry)}, nil
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// Download writes a as a file download named redo-ai-before-after.jpg.
func Download(w http.ResponseWriter, a *composite.Artifact) error {
	w.Header().Set("Content-Type", a.MIMEType())
	w.Header().Set("Content-Disposition", attachment(composite.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(a.Data)
	return err
}

// SaveFile writes a into dir under the download name and returns the path.
func SaveFile(dir string, a *composite.Artifact) (string, error) {
	path := filepath.Join(dir, composite.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}
