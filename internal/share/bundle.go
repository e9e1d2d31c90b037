package share

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/filehandler"
)

// BundleName is the download name of a bundle.
const BundleName = "redo-ai.zip"

// Image is one image going into a bundle.
type Image struct {
	Data     []byte
	MIMEType string
}

type entry struct {
	name string
	img  Image
}

// Bundle writes a zip holding the original, the generated image and,
// when given, the composite. Already-compressed images are stored; the
// rest is deflated.
func Bundle(w io.Writer, original, generated Image, comp *composite.Artifact) error {
	if len(original.Data) == 0 || len(generated.Data) == 0 {
		return errors.New("bundle needs both the original and the generated image")
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	entries := []entry{
		{"original" + filehandler.ExtensionFor(original.MIMEType), original},
		{"redo-ai" + filehandler.ExtensionFor(generated.MIMEType), generated},
	}
	if comp != nil && len(comp.Data) > 0 {
		entries = append(entries, entry{composite.Filename, Image{Data: comp.Data, MIMEType: comp.MIMEType()}})
	}

	modified := time.Now()
	for _, e := range entries {
		method := zip.Deflate
		if compressed(e.img.MIMEType) {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method, Modified: modified})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.img.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}

func compressed(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/webp", "image/heic", "image/heif", "image/gif":
		return true
	}
	return false
}
