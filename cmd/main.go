package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "storefront/docs"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Apple store backend: catalog, cart, checkout and order admin",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with settings")
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
