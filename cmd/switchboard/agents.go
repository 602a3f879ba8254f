package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the configured agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := loadRoster()
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		for _, spec := range roster.Agents {
			bold.Printf("%s", spec.Name)
			if roster.Default == spec.Name {
				color.New(color.Faint).Print(" (default)")
			}
			fmt.Println()
			fmt.Printf("  %s\n", spec.Description)

			var caps []string
			if spec.Streaming {
				caps = append(caps, "streaming")
			}
			if len(spec.Tools) > 0 {
				caps = append(caps, fmt.Sprintf("tools: %v", spec.Tools))
			}
			if len(spec.Keywords) > 0 {
				caps = append(caps, fmt.Sprintf("keywords: %v", spec.Keywords))
			}
			for _, c := range caps {
				color.New(color.Faint).Printf("  %s\n", c)
			}
		}
		return nil
	},
}
