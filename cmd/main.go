package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/tracker/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Tasks, sections and articles API",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		app.InitDefaultLogger()
		app.MustReadEnv()
		app.MustInitApplicationLogger()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		app.MustInitStorage()
		defer app.DisconnectPostgres()

		app.MustListenAndServeHTTP()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		app.MustMigratePostgres()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
