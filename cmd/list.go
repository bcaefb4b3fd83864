package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/minipack/internal/compiler"
	"github.com/conneroisu/minipack/internal/loader"
	"github.com/conneroisu/minipack/internal/logging"
	"github.com/conneroisu/minipack/internal/registry"
)

// ModuleInfo describes one registered module.
type ModuleInfo struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`
	Raw  bool   `json:"raw,omitempty" yaml:"raw,omitempty"`
}

func newListCommand(_ *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List the registered loaders and plugins",
		Long: `List every loader and plugin module that configurations can reference.

Examples:
  minipack list                   # List modules in table format
  minipack list -f json           # Output as JSON
  minipack list --format yaml     # Output as YAML`,
		PreRunE: func(*cobra.Command, []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			mods, err := newModules(logging.Nop())
			if err != nil {
				return err
			}
			infos, err := describeModules(mods)
			if err != nil {
				return err
			}
			return writeModules(cmd.OutOrStdout(), format, infos)
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

// describeModules resolves the default export of every module to tell
// loaders from plugins.
func describeModules(mods *registry.Modules) ([]ModuleInfo, error) {
	ids := mods.IDs()
	infos := make([]ModuleInfo, 0, len(ids))

	for _, id := range ids {
		exports, err := mods.Require(id)
		if err != nil {
			return nil, err
		}
		value, _ := exports.Default()

		info := ModuleInfo{ID: id, Kind: "unknown"}
		switch v := value.(type) {
		case *loader.Loader:
			info.Kind = "loader"
			info.Raw = v.Raw
		case compiler.PluginFactory:
			info.Kind = "plugin"
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func writeModules(w io.Writer, format string, infos []ModuleInfo) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		return yaml.NewEncoder(w).Encode(infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tRAW")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", info.ID, info.Kind, info.Raw)
	}
	return tw.Flush()
}
