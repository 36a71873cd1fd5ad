package main

import (
	"fmt"
	"os"

	"playmatch/tags/internal/config"
	"playmatch/tags/internal/database"
	"playmatch/tags/internal/logger"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playmatch-tags",
	Short: "Playmatch tagging service",
	Long: `Playmatch tagging service.

Tags are reusable, optionally typed labels shared by games and users.

Available commands:
  serve   - Start the HTTP API (default)
  migrate - Create or update the database schema`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(); err != nil {
			return err
		}
		if err := logger.Initialize(config.AppConfig.LogJSON, config.AppConfig.LogDebug); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Connect(config.AppConfig.DatabaseURL, config.AppConfig.TagsLinkTable); err != nil {
			return err
		}
		gin.SetMode(config.AppConfig.GinMode)

		addr := ":" + config.AppConfig.Port
		logger.Logger.Infow("Server is running", "addr", addr)
		logger.Logger.Infow("Swagger UI is available", "url", "http://localhost"+addr+"/swagger/index.html")
		return newRouter().Run(addr)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect migrates as part of wiring the engine.
		return database.Connect(config.AppConfig.DatabaseURL, config.AppConfig.TagsLinkTable)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
