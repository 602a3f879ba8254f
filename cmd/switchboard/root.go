package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	agentsPath string
	userID     string
	sessionID  string
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Route conversations to specialized agents",
	Long: `Switchboard routes each user turn to one of several specialized
agents. A classifier picks the agent with a confidence score; the chosen
agent answers with its own bounded conversation history, streaming when
it supports it.

With no arguments, starts an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&agentsPath, "agents", "", "Path to the agent roster YAML (default: built-in roster)")
	rootCmd.Flags().StringVar(&userID, "user", "", "User id for history scoping (default: OS username)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: a fresh UUID)")

	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
