// Package nodes holds the n8nctl nodes subcommands over the bundled
// node-type catalog.
package nodes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/core"
)

// Cmd builds the nodes command group.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Query the bundled node-type catalog",
	}
	cmd.AddCommand(searchCmd(), infoCmd(), versionsCmd())
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search node types by name and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeFlag, _ := cmd.Flags().GetString("mode")
			mode, err := parseSearchMode(modeFlag)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			cat, err := helpers.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()

			results, err := cat.Search(cmd.Context(), args[0], mode, limit)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(searchView{results})
		},
	}
	cmd.Flags().String("mode", "OR", "search mode: OR, AND, FUZZY")
	cmd.Flags().Int("limit", 20, "maximum number of hits")
	return cmd
}

func infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <node-type>",
		Short: "Show a node type's catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := helpers.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()

			rec, err := lookupWithSuggestions(cmd, cat, args[0])
			if err != nil {
				return err
			}
			if version, _ := cmd.Flags().GetString("schema"); version != "" {
				if err := checkSchemaVersion(rec, version); err != nil {
					return err
				}
				schema, err := cat.PropertySchema(cmd.Context(), rec.Type, version)
				if err != nil {
					return err
				}
				return helpers.Output(cmd).WriteData(schema)
			}
			return helpers.Output(cmd).WriteData(rec)
		},
	}
	cmd.Flags().String("schema", "", "print the property schema for the given version instead")
	return cmd
}

func versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <node-type>",
		Short: "List the known versions of a node type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := helpers.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()

			rec, err := lookupWithSuggestions(cmd, cat, args[0])
			if err != nil {
				return err
			}
			versions, err := cat.Versions(cmd.Context(), rec.Type)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(map[string]any{
				"nodeType": rec.Type,
				"versions": versions,
				"latest":   rec.LatestVersion(),
			})
		},
	}
}

// checkSchemaVersion rejects schema requests for versions the catalog does
// not track, so the user sees the known versions instead of a bare miss.
func checkSchemaVersion(rec *catalog.Record, version string) error {
	if rec.HasVersion(version) {
		return nil
	}
	return core.NewKindError(core.KindNotFound, nil, "VERSION_NOT_FOUND",
		fmt.Sprintf("node type %s has no version %s", rec.Type, version), map[string]any{
			"nodeType":      rec.Type,
			"knownVersions": rec.Versions,
		})
}

// lookupWithSuggestions resolves a node type, turning a catalog miss into
// a not-found error that carries close matches.
func lookupWithSuggestions(cmd *cobra.Command, cat *catalog.Store, nodeType string) (*catalog.Record, error) {
	rec, err := cat.Lookup(cmd.Context(), nodeType)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	details := map[string]any{"nodeType": nodeType}
	if suggestions, serr := cat.Similar(cmd.Context(), nodeType, 3); serr == nil && len(suggestions) > 0 {
		types := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			types = append(types, s.Type)
		}
		details["didYouMean"] = types
	}
	return nil, core.NewKindError(core.KindNotFound, err, "NODE_TYPE_NOT_FOUND",
		fmt.Sprintf("node type %q is not in the catalog", nodeType), details)
}

func parseSearchMode(s string) (catalog.SearchMode, error) {
	switch catalog.SearchMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", catalog.ModeOR:
		return catalog.ModeOR, nil
	case catalog.ModeAND:
		return catalog.ModeAND, nil
	case catalog.ModeFuzzy:
		return catalog.ModeFuzzy, nil
	default:
		return "", fmt.Errorf("unsupported search mode %q (OR, AND, FUZZY)", s)
	}
}

// searchView renders catalog hits as a table.
type searchView struct {
	*catalog.SearchResults
}

func (v searchView) TableHeader() []string {
	return []string{"TYPE", "NAME", "SCORE", "DESCRIPTION"}
}

func (v searchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Results))
	for _, r := range v.Results {
		rows = append(rows, []string{
			r.Type,
			r.DisplayName,
			fmt.Sprintf("%.2f", r.Score),
			r.Description,
		})
	}
	return rows
}
