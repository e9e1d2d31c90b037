package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrCanceled is returned when the user dismisses the picker.
var ErrCanceled = errors.New("no photo selected")

// imagePatterns are the file patterns offered by the photo picker.
var imagePatterns = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.heic", "*.heif"}

// PickImage opens the native file dialog for a photo. When no dialog can be
// shown (headless, SSH) it falls back to asking on stdin.
func PickImage(title string) (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{{Name: "Photos", Patterns: imagePatterns}},
	)
	switch {
	case err == nil:
		log.Debug().Str("path", path).Msg("Photo picked via native dialog")
		return path, nil
	case errors.Is(err, zenity.ErrCanceled):
		return "", ErrCanceled
	}
	log.Debug().Err(err).Msg("Native file dialog unavailable, prompting on stdin")
	return PromptForPath(os.Stdin, os.Stdout, title)
}

// PromptForPath asks for a file path on in. An empty answer is ErrCanceled.
func PromptForPath(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.Trim(strings.TrimSpace(input), `"'`)
	if input == "" {
		return "", ErrCanceled
	}
	return input, nil
}

// Confirm asks a yes/no question on in. Anything but y/yes is no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	input, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	return false
}
