package plugins

import (
	"fmt"
	"strings"

	"github.com/conneroisu/minipack/internal/compiler"
)

// AnalyzeReport is the asset name of the size report.
const AnalyzeReport = "analyze.md"

// Analyze adds a markdown report of asset sizes.
type Analyze struct{}

// NewAnalyze builds an analyze plugin. It takes no options.
func NewAnalyze(options map[string]any) (compiler.Plugin, error) {
	if err := decodeOptions(options, &struct{}{}); err != nil {
		return nil, err
	}
	return &Analyze{}, nil
}

// Name returns the plugin name
func (p *Analyze) Name() string { return AnalyzePlugin }

// Apply taps the finalize hook
func (p *Analyze) Apply(c *compiler.Compiler) error {
	return c.Hooks().Finalize.Tap(AnalyzePlugin, func(comp *compiler.Compilation) error {
		report := Report(comp.Stats())
		comp.Logger().Debug(comp.Context(), "Wrote size report", "assets", len(comp.Stats()))
		return comp.EmitAsset(AnalyzeReport, compiler.RawAsset(report))
	})
}

// Report renders asset sizes as a markdown table in KiB, rounded up.
func Report(stats []compiler.AssetStat) string {
	var b strings.Builder
	b.WriteString("### Asset sizes\n\n| Asset | Size |\n| --- | --- |\n")
	for _, stat := range stats {
		fmt.Fprintf(&b, "| %s | %d KiB |\n", stat.Name, kib(stat.Size))
	}
	return b.String()
}

func kib(size int) int {
	return (size + 1023) / 1024
}
