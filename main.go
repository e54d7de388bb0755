package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; it mostly carries AWS credentials for publish
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env: %s", err)
	}

	rootCmd := serveCmd()
	rootCmd.Use = "zerver"
	rootCmd.Short = "Static asset server with a build cache"
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(
		serveCmd(),
		buildCmd(),
		publishCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
