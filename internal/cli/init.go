package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foreman/internal/config"
	"foreman/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize foreman in the current directory",
	Long:  "Creates a .foreman/ directory with default config and database.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(foremanDirName); err == nil {
		return fmt.Errorf("foreman already initialized in this directory (.foreman/ exists)")
	}

	if err := os.MkdirAll(foremanDirName, 0755); err != nil {
		return fmt.Errorf("create .foreman: %w", err)
	}

	cfg := config.DefaultConfig()
	if err := config.Save(foremanPath("config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening the store runs the schema migration.
	s, err := store.New(foremanPath("foreman.db"))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	s.Close()

	fmt.Println("Initialized foreman in .foreman/")
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit .foreman/config.yaml to point at your coding agent")
	fmt.Println("  2. Run: foreman project new \"my project\"")
	fmt.Println("  3. Run: foreman chat <project> \"what we're building\"")

	return nil
}
