package main

import (
	"fmt"
	"os"

	"chat-backend/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chat-server",
	Short: "Chat session and message service",
	Long: `chat-server stores chat sessions and their messages per user and answers
each user message with a generated assistant reply.

Configuration is read from config/config.yml (or --config) and CHAT_*
environment variables, e.g. CHAT_DATABASE_DRIVER=sqlite.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
