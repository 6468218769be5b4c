package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/resolve"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	resolveIssuer string
	resolveFormat string
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <raw-name>...",
	Short: "Resolve printed coverage names to canonical ids",
	Long: `Resolve runs only the canonical name cascade for the given names:
exact, normalized, alias, normalized_alias, suffix_normalized.
Names that do not map are reported as unmatched with a reason.

Example:
  covgate resolve --issuer N01 "일반암진단비(갱신형)"
  covgate resolve --issuer N01 "암진단Ⅱ(유사암제외)담보" "질병입원일당" --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveIssuer, "issuer", "", "issuer code (ins_cd) scoping alias lookups")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "yaml", "output format (yaml, json)")
	_ = resolveCmd.MarkFlagRequired("issuer")
}

func runResolve(cmd *cobra.Command, args []string) error {
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

	resolver := resolve.New(cat)
	resolutions := make([]model.Resolution, 0, len(args))
	for _, raw := range args {
		resolutions = append(resolutions, resolver.Resolve(raw, resolveIssuer))
	}

	var data []byte
	switch strings.ToLower(resolveFormat) {
	case "json":
		data, err = json.MarshalIndent(resolutions, "", "  ")
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = yaml.Marshal(resolutions)
	default:
		return fmt.Errorf("unknown output format %q", resolveFormat)
	}
	if err != nil {
		return fmt.Errorf("encode resolutions: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
