package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/patch"
	"github.com/driftwood-io/driftwood/internal/schema"
)

var (
	applyReverse bool
	applySchema  bool
	applyWrite   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <operations.json> <target>",
	Short: "Apply an operation list to a tree file",
	Long: `Replays a previously computed operation list against a JSON or YAML
tree and prints the result. With --schema the operations are treated as a
schema-level diff and reprojected onto the data shape.`,
	Run: applyCommand,
}

func init() {
	applyCmd.Flags().BoolVarP(&applyReverse, "reverse", "r", false, "reverse the operation list before applying")
	applyCmd.Flags().BoolVar(&applySchema, "schema", false, "apply with the schema-projection change handler")
	applyCmd.Flags().BoolVarP(&applyWrite, "write", "w", false, "rewrite the target file instead of printing")
}

func applyCommand(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "apply takes 2 arguments, %d were given\n", len(args))
		os.Exit(1)
	}

	opsData, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", args[0], err)
		os.Exit(1)
	}
	ops, err := diff.UnmarshalList(opsData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse operations: %v\n", err)
		os.Exit(1)
	}

	target, err := loadTree(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", args[1], err)
		os.Exit(1)
	}

	if applyReverse {
		ops = patch.Reverse(ops)
	}

	handler := patch.Default()
	if applySchema {
		handler = schema.ProjectionHandler()
	}

	result, err := patch.Apply(ops, target, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal result: %v\n", err)
		os.Exit(1)
	}

	if applyWrite {
		if err := os.WriteFile(args[1], append(out, '\n'), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", args[1], err)
			os.Exit(1)
		}
		fmt.Printf("Applied %d operations to %s\n", len(ops), args[1])
		return
	}

	fmt.Println(string(out))
}
