package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/driftwood-io/driftwood/internal/config"
	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/tree"
)

var diffOutput string

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Diff two tree files",
	Long:  "Computes the operation list transforming the first JSON or YAML tree into the second",
	Run:   diffCommand,
}

func init() {
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "", "write the operation list as JSON to a file")
}

func diffCommand(cmd *cobra.Command, args []string) {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "diff takes 2 arguments, %d were given\n", len(args))
		os.Exit(1)
	}

	oldTree, err := loadTree(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", args[0], err)
		os.Exit(1)
	}
	newTree, err := loadTree(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", args[1], err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	d := diff.New(diff.WithRenameThreshold(cfg.Diff.RenameThreshold))
	ops := d.Diff(oldTree, newTree)

	if ops.Empty() {
		fmt.Println("Trees are identical")
		return
	}

	printOps(ops)

	if diffOutput != "" {
		data, err := ops.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal operations: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(diffOutput, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", diffOutput, err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %d operations to %s\n", len(ops), diffOutput)
	}
}

func printOps(ops diff.List) {
	addColor := color.New(color.FgGreen)
	removeColor := color.New(color.FgRed)
	updateColor := color.New(color.FgYellow)
	relocColor := color.New(color.FgCyan)

	for _, op := range ops {
		switch op.Kind {
		case diff.Add:
			addColor.Printf("+ add     %s = %s\n", op.Key, compact(op.Value))
		case diff.Remove:
			removeColor.Printf("- remove  %s (was %s)\n", op.Key, compact(op.Value))
		case diff.Update:
			updateColor.Printf("~ update  %s: %s -> %s\n", op.Key, compact(op.OldValue), compact(op.NewValue))
		case diff.Rename:
			relocColor.Printf("> rename  %s -> %s\n", op.OldKey, op.NewKey)
		case diff.Move:
			relocColor.Printf("> move    %s -> %s\n", op.OldKey, op.NewKey)
		}
	}
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// loadTree reads a JSON or YAML file into a Tree.
func loadTree(path string) (tree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var t tree.Tree
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
		return t, nil
	}

	var t tree.Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return t, nil
}
