package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fpang/redo-ai/internal/cli"
	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/share"
	"github.com/fpang/redo-ai/internal/slider"
)

var (
	compositeDir string
	bundleFlag   bool
	revealPct    float64
	revealOut    string
)

var compositeCmd = &cobra.Command{
	Use:   "composite <original> <generated>",
	Short: "Render a labelled before/after image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := filehandler.ReadFile(args[0])
		if err != nil {
			return err
		}
		generated, err := filehandler.ReadFile(args[1])
		if err != nil {
			return err
		}

		r := composite.NewRenderer(composite.Options{Timeout: cfg.CompositeTimeout})
		art, err := r.Render(cmd.Context(), composite.FromBytes(original.Data), composite.FromBytes(generated.Data))
		if err != nil {
			return err
		}
		path, err := share.SaveFile(compositeDir, art)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%dx%d, %s)\n", path, art.Width, art.Height, cli.FormatBytes(len(art.Data)))

		if bundleFlag {
			zipPath := filepath.Join(compositeDir, share.BundleName)
			f, err := os.Create(zipPath)
			if err != nil {
				return err
			}
			defer f.Close()
			err = share.Bundle(f,
				share.Image{Data: original.Data, MIMEType: original.MIMEType},
				share.Image{Data: generated.Data, MIMEType: generated.MIMEType},
				art)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", zipPath)
		}
		return nil
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal <original> <generated>",
	Short: "Render one frame of the comparison slider",
	Long: `Reveal renders the comparison slider at a position: the original shows
through on the left up to --at percent of the width, the generated image
fills the rest.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := decodeFile(args[0])
		if err != nil {
			return err
		}
		after, err := decodeFile(args[1])
		if err != nil {
			return err
		}

		// Drag from the left edge to the requested spot so the position is
		// clamped exactly as in the editor.
		w := float64(after.Bounds().Dx())
		s := slider.New(slider.Interactive, slider.Rect{Width: w})
		s.Handle(slider.Event{Source: slider.Mouse, Phase: slider.Down, ClientX: 0})
		s.Handle(slider.Event{Source: slider.Mouse, Phase: slider.Move, ClientX: w * revealPct / 100})
		s.Handle(slider.Event{Source: slider.Mouse, Phase: slider.Up})

		frame := composite.Reveal(before, after, s.Position())
		f, err := os.Create(revealOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, frame); err != nil {
			return fmt.Errorf("failed to encode %s: %w", revealOut, err)
		}
		fmt.Printf("%s %s\n", cli.FormatRevealBar(s.Position(), 30), revealOut)
		return nil
	},
}

func init() {
	compositeCmd.Flags().StringVarP(&compositeDir, "dir", "d", ".", "Directory to save into")
	compositeCmd.Flags().BoolVar(&bundleFlag, "bundle", false, "Also save a zip of all three images")
	revealCmd.Flags().Float64Var(&revealPct, "at", slider.Initial, "Slider position in percent")
	revealCmd.Flags().StringVarP(&revealOut, "out", "o", "redo-ai-reveal.png", "Output PNG")
}

func decodeFile(path string) (image.Image, error) {
	u, err := filehandler.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := composite.HTTPLoader{}.Load(context.Background(), composite.FromBytes(u.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
