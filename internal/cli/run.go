package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/covgate/internal/catalog"
	"github.com/ppiankov/covgate/internal/model"
	"github.com/ppiankov/covgate/internal/pipeline"
	"github.com/ppiankov/covgate/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var noCache bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve entities and attribute coverage facts from passages",
	Long: `Run executes one complete evaluation:
- Load the reference catalog and the evidence passages
- Resolve every entity's printed name to a canonical coverage id
- Gate every candidate passage per attribute and assemble slots
- Demote slots whose evidence is shared between entities
- Write one result document (manifest, resolutions, slots)

Example:
  covgate run --catalog catalog.yaml --passages passages.jsonl --entities entities.yaml
  covgate run --catalog-driver sqlite --catalog catalog.db --passages-format html --passages ./docs
  covgate run --output - --format yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	defaults := model.DefaultConfig()

	flags := runCmd.Flags()
	flags.String("passages", defaults.Passages.Path, "passage file (jsonl) or directory (html)")
	flags.String("passages-format", defaults.Passages.Format, "passage source format (jsonl, html)")
	flags.String("entities", defaults.Entities.Path, "entity list (.yaml, .yml, .json, .jsonl)")
	flags.Int("workers", defaults.Engine.Workers, "entity tasks evaluated in parallel")
	flags.Int("evidence-cap", defaults.Engine.EvidenceCap, "max evidence references per FOUND slot")
	flags.StringP("output", "o", defaults.Output.Path, "result file, - for stdout")
	flags.String("format", defaults.Output.Format, "result format (json, yaml)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the resolver memo")

	_ = viper.BindPFlag("passages.path", flags.Lookup("passages"))
	_ = viper.BindPFlag("passages.format", flags.Lookup("passages-format"))
	_ = viper.BindPFlag("entities.path", flags.Lookup("entities"))
	_ = viper.BindPFlag("engine.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("engine.evidence_cap", flags.Lookup("evidence-cap"))
	_ = viper.BindPFlag("output.path", flags.Lookup("output"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	result, err := execute(ctx, cfg)
	if err != nil {
		return err
	}

	renderer, err := pipeline.NewRenderer(cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := renderer.Render(result, cfg.Output.Path, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	pipeline.RenderSummary(cmd.ErrOrStderr(), result)
	if cfg.Output.Path != "-" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", cfg.Output.Path)
	}
	return nil
}

// execute wires the configured sources into one pipeline run
func execute(ctx context.Context, cfg *model.Config) (*model.RunResult, error) {
	catSrc, err := catalog.NewSource(cfg.Catalog.Driver, cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	passSrc, err := source.NewPassageSource(cfg.Passages.Format, cfg.Passages.Path)
	if err != nil {
		return nil, err
	}
	entities, err := source.LoadEntities(cfg.Entities.Path)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	result, err := pipeline.NewPipeline(cfg).Run(ctx, pipeline.Inputs{
		Catalog:  catSrc,
		Passages: passSrc,
		Entities: entities,
	})
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}
	return result, nil
}
