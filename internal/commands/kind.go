package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"evalgo.org/lixiv/internal/kind"
)

var kindInherit bool

var kindCmd = &cobra.Command{
	Use:   "kind",
	Short: "Inspect kind catalogs",
}

var kindListCmd = &cobra.Command{
	Use:   "list <kinds-file>",
	Short: "Print the kind hierarchy of a kinds file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKindList,
}

var kindCheckCmd = &cobra.Command{
	Use:   "check <kinds-file>",
	Short: "Check that a kinds file builds a valid catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runKindCheck,
}

func init() {
	kindCmd.AddCommand(kindListCmd)
	kindCmd.AddCommand(kindCheckCmd)

	kindCmd.PersistentFlags().BoolVar(&kindInherit, "inherit", false, "resolve fields across the parent chain")
}

// registryOptions combines the --inherit flag with the configured default.
func registryOptions() []kind.Option {
	if kindInherit || (cfg != nil && cfg.Catalog.InheritFields) {
		return []kind.Option{kind.WithInheritedFields()}
	}
	return nil
}

func runKindList(cmd *cobra.Command, args []string) error {
	reg, err := kind.LoadFile(args[0], registryOptions()...)
	if err != nil {
		return err
	}

	printHierarchy(cmd.OutOrStdout(), reg)
	return nil
}

func runKindCheck(cmd *cobra.Command, args []string) error {
	reg, err := kind.LoadFile(args[0], registryOptions()...)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", args[0], err)
		return fmt.Errorf("catalog check failed")
	}

	fingerprint, err := reg.Fingerprint()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d kinds (fingerprint %s)\n", args[0], reg.Len(), fingerprint[:16])
	return nil
}

// printHierarchy writes the kind tree, roots first, each kind followed by
// its fields in name order.
func printHierarchy(w io.Writer, reg *kind.Registry) {
	var walk func(name string, depth int)
	walk = func(name string, depth int) {
		fields, _ := reg.Fields(name)
		names := make([]string, 0, len(fields))
		for field := range fields {
			names = append(names, field)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, field := range names {
			parts = append(parts, field+":"+fields[field].String())
		}

		fmt.Fprintf(w, "%s%s {%s}\n", strings.Repeat("  ", depth), name, strings.Join(parts, ", "))
		for _, child := range reg.Children(name) {
			walk(child, depth+1)
		}
	}

	for _, def := range reg.List() {
		if !def.HasParent() {
			walk(def.Name, 0)
		}
	}
}
