package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftwood-io/driftwood/internal/config"
)

var showVersion int

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List stored schemas and their latest versions",
	Run:   schemasCommand,
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored schema version",
	Run:   showCommand,
}

var configCmd = &cobra.Command{
	Use:   "config <key> [value]",
	Short: "Get or set a configuration value",
	Run:   configCommand,
}

func init() {
	showCmd.Flags().IntVarP(&showVersion, "version", "v", 0, "schema version to show (default latest)")
}

func schemasCommand(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	s, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open schema store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	names, err := s.Names()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list schemas: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Println("No schemas stored")
		return
	}

	nameColor := color.New(color.FgCyan, color.Bold)
	for _, name := range names {
		stored, err := s.LoadLatest(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", name, err)
			os.Exit(1)
		}
		nameColor.Printf("%s", name)
		fmt.Printf("  v%d\n", stored.Version)
	}
}

func showCommand(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "show takes 1 argument, %d were given\n", len(args))
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	s, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open schema store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	stored, err := s.LoadLatest(args[0])
	if showVersion > 0 {
		stored, err = s.Load(args[0], showVersion)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load schema %s: %v\n", args[0], err)
		os.Exit(1)
	}
	if stored == nil {
		fmt.Fprintf(os.Stderr, "Schema %s is not registered\n", args[0])
		os.Exit(1)
	}

	out, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func configCommand(cmd *cobra.Command, args []string) {
	switch len(args) {
	case 1:
		value, err := config.GetValue(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println(value)
	case 2:
		if err := config.SetValue(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "config takes 1 or 2 arguments, %d were given\n", len(args))
		os.Exit(1)
	}
}
