package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/spf13/cobra"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and convert the reference catalog",
	Long: `Inspect and convert the reference catalog.

The catalog is loaded from --catalog using --catalog-driver (yaml or sqlite).
Any validation error is fatal: bad version, missing negative pattern sets,
duplicate ids, colliding names or aliases, bad regexes, unknown rules.`,
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configured catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src, err := catalog.NewSource(cfg.Catalog.Driver, cfg.Catalog.Path)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cmd.Context(), src, cfg.Catalog.Require)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "✓ %s is valid\n", src.Describe())
		_, _ = fmt.Fprintf(out, "  Version:    %s\n", cat.Version())
		if cat.AsOf() != "" {
			_, _ = fmt.Fprintf(out, "  As of:      %s\n", cat.AsOf())
		}
		_, _ = fmt.Fprintf(out, "  Entries:    %s\n", humanize.Comma(int64(len(cat.Entries()))))
		_, _ = fmt.Fprintf(out, "  Aliases:    %s\n", humanize.Comma(int64(cat.AliasCount())))
		_, _ = fmt.Fprintf(out, "  Attributes: %d\n", len(cat.Attributes()))
		for _, a := range cat.Attributes() {
			_, _ = fmt.Fprintf(out, "    - %s (%s)\n", a.Key, a.Rule)
		}
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml> <catalog.db>",
	Short: "Copy a YAML catalog into a SQLite database",
	Long: `Import validates a YAML catalog and stores it in a SQLite database,
replacing any catalog already there. The database can then be used with
--catalog-driver sqlite.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		raw, err := catalog.ParseYAML(data)
		if err != nil {
			return err
		}
		cat, err := catalog.Build(raw)
		if err != nil {
			return err
		}

		db, err := sql.Open("sqlite", args[1])
		if err != nil {
			return fmt.Errorf("open catalog db: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close catalog db: %w", closeErr)
			}
		}()

		if err := catalog.WriteSQLite(cmd.Context(), db, raw); err != nil {
			return fmt.Errorf("write catalog db: %w", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported catalog %s (%d entries) into %s\n",
			cat.Version(), len(cat.Entries()), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
	catalogCmd.AddCommand(catalogImportCmd)
}
