// Package main provides the redo command line tool: list filters, build
// prompts, transform a photo over the demo, guest or bring-your-own-key
// route, and render before/after composites.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fpang/redo-ai/internal/config"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/logging"
)

var (
	modeFlag string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "redo",
	Short: "Reimagine city streets and rooms with AI",
	Long: `Redo AI edits a photo of a street or a room according to the filters you
pick, then shows the result next to the original.

Examples:
  redo filters --mode home
  redo generate street.jpg --filters remove_trash,add_greenery --composite
  redo generate room.jpg --mode home --token $REDO_TOKEN
  redo composite before.jpg after.png
  redo key set`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init()
		v, err := config.New()
		if err != nil {
			return err
		}
		bindFlags(v, cmd)
		cfg, err = config.Parse(v)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "city", "Photo subject: city or home")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Gemini image model to use")
	rootCmd.PersistentFlags().String("guest-url", "", "Base URL of the Redo AI API for guest generation")

	rootCmd.AddCommand(filtersCmd, promptCmd, generateCmd, compositeCmd, revealCmd, keyCmd, creditsCmd)
}

// bindFlags lets persistent flags override the file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, flag := range map[string]string{
		"image_model": "model",
		"guest_url":   "guest-url",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}
}

func mode() (filter.Mode, error) {
	return filter.ParseMode(modeFlag)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Debug().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
