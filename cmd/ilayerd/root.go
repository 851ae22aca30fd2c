package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const flagHome = "home"

// DefaultHome is used when --home is not set.
var DefaultHome = defaultHome()

func defaultHome() string {
	if home := os.Getenv("ILAYER_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".ilayer"
	}
	return filepath.Join(userHome, ".ilayer")
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ilayerd",
		Short:         "iLayer order-book indexer and filler bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(flagHome, DefaultHome, "directory for config and data")

	InitRootCmd(rootCmd)

	return rootCmd
}
