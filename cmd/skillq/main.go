// Package main is the skillq command: the session API server, a one-shot search and
// the search index loader.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "skillq",
	Short: "Conversational candidate search",
	Long:  "skillq turns recruiter queries into structured filters and ranks parsed resumes against them, refining the search across turns.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config YAML file (default: configs/config.yaml)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
