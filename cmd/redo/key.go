package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/cli"
	"github.com/fpang/redo-ai/internal/generate"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage your own Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Validate and save an API key for the bring-your-own-key route",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			var err error
			if key, err = cli.PromptForPath(os.Stdin, os.Stdout, "Gemini API key"); err != nil {
				return err
			}
		}
		if err := auth.ValidateKey(cmd.Context(), key); err != nil {
			return fmt.Errorf("%s: %w", cli.ValidationMessage(err), err)
		}
		path, err := auth.SaveAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Printf("API key saved to %s\n", path)
		return nil
	},
}

var keyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured API key can use the image model",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GetAPIKey()
		if err != nil {
			return err
		}
		if err := auth.ValidateKey(cmd.Context(), key); err != nil {
			return fmt.Errorf("%s: %w", cli.ValidationMessage(err), err)
		}
		fmt.Println("API key OK")
		return nil
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show your guest credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.GuestURL == "" {
			return fmt.Errorf("--guest-url (or REDO_GUEST_URL) is required")
		}
		token := os.Getenv("REDO_TOKEN")
		if token == "" {
			return fmt.Errorf("set REDO_TOKEN to your guest ID token")
		}
		balance, err := generate.NewGuestClient(cfg.GuestURL, nil).Balance(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Printf("Credits: %d\n", balance)
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyCheckCmd)
}
