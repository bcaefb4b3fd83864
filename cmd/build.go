package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/minipack/internal/compiler"
)

type buildOptions struct {
	metricsFile string
}

func newBuildCommand(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Run a build and write its assets",
		Long: `Run one build: discover units, transform them through their loader
chains, fire the plugin hooks and write the assets to the output directory.

Examples:
  minipack build                          # Build using minipack.yml
  minipack build --config site.yml        # Build using another config file
  minipack build --output public          # Write assets to public/
  minipack build --metrics-file build.prom # Also write build metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, root, opts)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory")
	cmd.Flags().StringP("mode", "m", "", "Build mode (development|production)")
	cmd.Flags().IntP("parallelism", "p", 0, "Units transformed concurrently")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write build metrics in the Prometheus text format")

	if err := bindFlags(root.viper, cmd.Flags(), map[string]string{
		"output":      "output.path",
		"mode":        "mode",
		"parallelism": "parallelism",
	}); err != nil {
		panic(err)
	}
	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions) error {
	ctx := cmd.Context()

	cfg, err := root.load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	mods, err := newModules(logger)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	c, err := compiler.New(cfg,
		compiler.WithModules(mods),
		compiler.WithLogger(logger),
		compiler.WithInputFS(fs),
		compiler.WithOutputFS(fs),
	)
	if err != nil {
		return err
	}

	result, runErr := c.Run(ctx)
	if opts.metricsFile != "" {
		if err := writeMetrics(opts.metricsFile, c.Metrics()); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	files, err := c.Emit(ctx, result)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tSIZE")
	for _, file := range files {
		fmt.Fprintf(w, "%s\t%d\n", file.Name, file.Size)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Built %d assets into %s in %v\n", len(files), cfg.Output.Path, result.Duration)
	return nil
}

func writeMetrics(path string, metrics *compiler.BuildMetrics) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
