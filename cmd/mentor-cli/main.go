package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mentor-cli",
		Short: "Mentor CLI - command-line companion for the mentor server",
		Long: `mentor-cli talks to a running mentor server and runs parts of it locally.

Examples:
  # Inspect a document the way the server would
  mentor-cli extract resume.pdf

  # Configuration
  mentor-cli config show --format json
  mentor-cli config schema

  # Conversations (token from --token or MENTOR_TOKEN)
  mentor-cli chat send "How should I prepare for interviews?"
  mentor-cli classroom send coding "Review my solution" --file solution.txt
  mentor-cli classroom clear coding`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("server", envOr("MENTOR_SERVER", "http://localhost:5000"), "Mentor server base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("MENTOR_TOKEN"), "Bearer token for the API")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newClassroomCmd())
	return rootCmd
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
