package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
)

var filterIDsFlag []string

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the filters for a mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := mode()
		if err != nil {
			return err
		}
		c, err := filter.Load(m)
		if err != nil {
			return err
		}

		var data [][]string
		for _, o := range c.Options() {
			def := ""
			if o.IsDefault {
				def = "yes"
			}
			data = append(data, []string{o.ID, o.Label, string(o.Category), def})
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "LABEL", "CATEGORY", "DEFAULT"})
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderLine(false)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(data)
		table.Render()
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the instructions sent to the model for a selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := mode()
		if err != nil {
			return err
		}
		opts, err := resolveSelection(m, filterIDsFlag)
		if err != nil {
			return err
		}
		prompt, err := generate.BuildPrompt(m, opts)
		if err != nil {
			return err
		}
		fmt.Println(prompt)
		return nil
	},
}

func init() {
	promptCmd.Flags().StringSliceVarP(&filterIDsFlag, "filters", "f", nil, "Filter IDs (defaults when empty)")
}

// resolveSelection returns the catalog options for ids, or the mode's
// defaults when ids is empty.
func resolveSelection(m filter.Mode, ids []string) ([]filter.Option, error) {
	c, err := filter.Load(m)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = c.Defaults()
	}
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}
	return c.Resolve(ids)
}
