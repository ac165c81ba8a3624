// Package cli wires the driftwood commands. The CLI covers tree
// diffing, patch application and schema-store inspection; migration
// generation itself runs inside the registry when applications register
// their models.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwood-io/driftwood/internal/config"
	"github.com/driftwood-io/driftwood/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "driftwood",
	Short: "driftwood diffs structured data and tracks schema drift",
	Long: `driftwood computes structural diffs between tree-shaped data,
applies and reverses them, and inspects the versioned schema store
maintained by the drift-detection pipeline.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a driftwood workspace",
	Long:  "Creates the .driftwood directory, default configuration and schema store",
	Run:   initCommand,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)

	// Diff and patch commands
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(applyCmd)

	// Schema store commands
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(showCmd)

	rootCmd.AddCommand(configCmd)
}

func initCommand(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "init takes 0 arguments, %d were given\n", len(args))
		os.Exit(1)
	}

	if _, err := os.Stat(".driftwood"); err == nil {
		fmt.Println("Workspace already initialized")
		return
	}

	cfg := config.DefaultConfig()
	if err := config.SaveRepoConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}

	s, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize schema store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	fmt.Println("Initialized driftwood workspace in .driftwood")
}

// openStore opens the schema store the configuration selects.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "bolt":
		return store.GetSharedBolt(".driftwood")
	default:
		return store.NewDirStore(cfg.Store.Dir)
	}
}
