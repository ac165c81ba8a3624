// Package migration renders an operation list into an executable,
// human-editable Go migration script. Every script exports the raw
// operation list under the stable name "<Schema>V<from>ToV<to>Operations"
// so tests and tooling can assert on exactly what the drift pipeline
// decided, independent of the generated boilerplate.
package migration

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/schema"
	"github.com/driftwood-io/driftwood/internal/store"
	"github.com/driftwood-io/driftwood/internal/tree"
)

const modulePath = "github.com/driftwood-io/driftwood"

// Render produces the migration script taking schema name from version
// `from` to version `to` via ops. The output is a complete Go source
// file; the hook bodies are stubs the operator edits before running the
// script against stored records.
func Render(name string, from, to int, ops diff.List) []byte {
	prefix := fmt.Sprintf("%sV%dToV%d", diff.CamelPath(name), from, to)

	var b strings.Builder
	fmt.Fprintf(&b, "// %s migrates %s records from schema version %d to version %d.\n",
		prefix, name, from, to)
	b.WriteString("//\n")
	b.WriteString("// Edit the hook bodies below before running this migration: an add\n")
	b.WriteString("// hook defaults its new field, every other hook starts as a no-op.\n")
	b.WriteString("package migrations\n\n")

	b.WriteString("import (\n")
	fmt.Fprintf(&b, "\t%q\n", modulePath+"/internal/diff")
	fmt.Fprintf(&b, "\t%q\n", modulePath+"/internal/patch")
	fmt.Fprintf(&b, "\t%q\n", modulePath+"/internal/schema")
	fmt.Fprintf(&b, "\t%q\n", modulePath+"/internal/tree")
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "// %sOperations is the exact operation list the drift pipeline\n", prefix)
	fmt.Fprintf(&b, "// produced for the %s transition.\n", store.ArtifactName(name, from, to))
	fmt.Fprintf(&b, "var %sOperations = diff.List{\n", prefix)
	for _, op := range ops {
		renderOp(&b, op)
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "// %sHooks names one hook per operation.\n", prefix)
	fmt.Fprintf(&b, "var %sHooks = patch.Hooks{\n", prefix)
	for _, op := range ops {
		fmt.Fprintf(&b, "\t%q: %s,\n", op.Fn, hookFunc(prefix, op))
	}
	b.WriteString("}\n\n")

	for _, op := range ops {
		renderHook(&b, prefix, op)
	}

	fmt.Fprintf(&b, "// Migrate%s upgrades one raw stored %s record in place.\n", prefix, name)
	fmt.Fprintf(&b, "func Migrate%s(record tree.Tree) (tree.Tree, error) {\n", prefix)
	b.WriteString("\thandler := schema.ProjectionHandler()\n")
	fmt.Fprintf(&b, "\thandler.Hooks = %sHooks\n", prefix)
	fmt.Fprintf(&b, "\treturn patch.Apply(%sOperations, record, handler)\n", prefix)
	b.WriteString("}\n")

	return []byte(b.String())
}

func hookFunc(prefix string, op diff.Operation) string {
	// Unexported per-script function, prefixed to keep scripts for
	// different transitions coexisting in one package.
	return lowerFirst(prefix) + upperFirst(op.Fn)
}

func renderOp(b *strings.Builder, op diff.Operation) {
	b.WriteString("\t{\n")
	fmt.Fprintf(b, "\t\tKind: diff.%s,\n", kindIdent(op.Kind))
	writeStr(b, "Key", op.Key)
	writeStr(b, "OldKey", op.OldKey)
	writeStr(b, "NewKey", op.NewKey)
	writeVal(b, "Value", op.Value)
	writeVal(b, "OldValue", op.OldValue)
	writeVal(b, "NewValue", op.NewValue)
	writeStr(b, "Fn", op.Fn)
	writeStr(b, "Rollback", op.Rollback)
	b.WriteString("\t\tStable: true,\n")
	writeStr(b, "ValueHash", op.ValueHash)
	b.WriteString("\t},\n")
}

func renderHook(b *strings.Builder, prefix string, op diff.Operation) {
	name := hookFunc(prefix, op)
	switch op.Kind {
	case diff.Add:
		fmt.Fprintf(b, "// %s runs after %q is set to its projected value.\n", name, op.Key)
		fmt.Fprintf(b, "func %s(parent tree.Tree, prop string, op diff.Operation) {\n", name)
		if spec, ok := op.Value.(tree.Tree); ok && schema.IsFieldSpec(spec) {
			fmt.Fprintf(b, "\tparent[prop] = %s\n", goLiteral(schema.FieldValue(spec), 1))
		}
		b.WriteString("}\n\n")
	case diff.Remove:
		fmt.Fprintf(b, "// %s runs before %q is deleted; parent[prop] still holds the\n", name, op.Key)
		b.WriteString("// outgoing value.\n")
		fmt.Fprintf(b, "func %s(parent tree.Tree, prop string, op diff.Operation) {\n", name)
		b.WriteString("}\n\n")
	case diff.Update:
		fmt.Fprintf(b, "// %s runs before %q is overwritten.\n", name, op.Key)
		fmt.Fprintf(b, "func %s(parent tree.Tree, prop string, op diff.Operation) {\n", name)
		b.WriteString("}\n\n")
	case diff.Move, diff.Rename:
		fmt.Fprintf(b, "// %s runs before %q is relocated to %q.\n", name, op.OldKey, op.NewKey)
		fmt.Fprintf(b, "func %s(parent tree.Tree, prop string, op diff.Operation) {\n", name)
		b.WriteString("}\n\n")
	}
}

func kindIdent(k diff.Kind) string {
	switch k {
	case diff.Add:
		return "Add"
	case diff.Remove:
		return "Remove"
	case diff.Update:
		return "Update"
	case diff.Move:
		return "Move"
	case diff.Rename:
		return "Rename"
	}
	return "Update"
}

func writeStr(b *strings.Builder, field, v string) {
	if v == "" {
		return
	}
	fmt.Fprintf(b, "\t\t%s: %q,\n", field, v)
}

func writeVal(b *strings.Builder, field string, v any) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "\t\t%s: %s,\n", field, goLiteral(v, 2))
}

// goLiteral renders a Tree value as Go source. Numbers become explicit
// float64 so a compiled script hashes values the same way the engine
// does.
func goLiteral(v any, indent int) string {
	pad := strings.Repeat("\t", indent)
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strconv.Quote(val)
	case tree.Tree:
		if len(val) == 0 {
			return "tree.Tree{}"
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("tree.Tree{\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s\t%q: %s,\n", pad, k, goLiteral(val[k], indent+1))
		}
		b.WriteString(pad + "}")
		return b.String()
	case []any:
		if len(val) == 0 {
			return "[]any{}"
		}
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = goLiteral(item, indent)
		}
		return "[]any{" + strings.Join(parts, ", ") + "}"
	default:
		if f, ok := asFloat(val); ok {
			if f == float64(int64(f)) {
				return fmt.Sprintf("float64(%d)", int64(f))
			}
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprintf("%#v", val)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
