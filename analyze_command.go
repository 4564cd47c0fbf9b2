package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/config"
	"github.com/pivolan/benford_analyzer/ingest"
	"github.com/pivolan/benford_analyzer/plot"
	"github.com/pivolan/benford_analyzer/report"
)

type analyzeFlags struct {
	column    int
	header    string
	delimiter string
	base      int
	format    string
	title     string
	chart     string
	html      string
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Print the first-digit distribution of one file",
	Long: `Analyze reads a CSV, TSV, text or XLSX file, optionally packed in a zip,
gzip or lz4 archive, and prints how often each first significant digit
occurs compared with Benford's law. Use "-" to read from stdin.

Example:
  benford_analyzer analyze payments.csv --column 2 --header yes
  benford_analyzer analyze ledger.xlsx --format markdown --chart ledger.png
  cat numbers.txt | benford_analyzer analyze - --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeOpts.column, "column", ingest.AutoColumn, "0-based relevant column, -1 to detect")
	analyzeCmd.Flags().StringVar(&analyzeOpts.header, "header", "auto", "header row: auto, yes or no")
	analyzeCmd.Flags().StringVar(&analyzeOpts.delimiter, "delimiter", "", "field delimiter: tab, semicolon, comma (default: detect)")
	analyzeCmd.Flags().IntVar(&analyzeOpts.base, "base", 0, "numeral system base (default: BENFORD_BASE)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.format, "format", "table", "output format: table, markdown, csv, html")
	analyzeCmd.Flags().StringVar(&analyzeOpts.title, "title", "", "report title (default: file name)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.chart, "chart", "", "write a PNG chart to this path")
	analyzeCmd.Flags().StringVar(&analyzeOpts.html, "html", "", "write an interactive HTML chart to this path")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	benfordCfg, err := cfg.Benford()
	if err != nil {
		return err
	}
	if analyzeOpts.base != 0 {
		benfordCfg.Base = analyzeOpts.base
	}
	format, err := report.ParseFormat(analyzeOpts.format)
	if err != nil {
		return err
	}

	opts := cfg.UploadOptions()
	opts.Allowed = benfordCfg.AllowedDelimiters()
	opts.Column = analyzeOpts.column
	if opts.Header, err = ingest.ParseHeaderMode(analyzeOpts.header); err != nil {
		return err
	}
	if opts.Delimiter, err = ingest.ParseDelimiter(analyzeOpts.delimiter); err != nil {
		return err
	}

	name, payload, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	a, err := analyzePayload(name, payload, opts, benfordCfg)
	if err != nil {
		return err
	}
	if analyzeOpts.title != "" {
		a.SetTitle(analyzeOpts.title)
	}

	out, err := report.Render(a, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	return writeCharts(a, analyzeOpts.chart, analyzeOpts.html)
}

func readInput(stdin io.Reader, arg string) (string, []byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		return "", data, err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(arg), data, nil
}

func analyzePayload(name string, payload []byte, opts ingest.Options, cfg benford.Config) (*benford.Analyzer, error) {
	src, err := ingest.Prepare(name, payload, opts)
	if err != nil {
		return nil, err
	}
	a, err := benford.FromRows(src.Rows, src.Column, src.HasHeader, cfg)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", displayName(name), err)
	}
	a.SetTitle(payloadTitle(name, src.Name))
	return a, nil
}

// payloadTitle names an archive by the member that was analyzed.
func payloadTitle(name, inner string) string {
	if ingest.IsArchive(name) && inner != "" {
		return fmt.Sprintf("%s from %s", inner, name)
	}
	return displayName(name)
}

func writeCharts(a *benford.Analyzer, pngPath, htmlPath string) error {
	d := plot.NewDigitDistribution(a)
	if pngPath != "" {
		png, err := plot.DrawDigitBars(d)
		if err != nil {
			return fmt.Errorf("draw chart: %w", err)
		}
		if err := os.WriteFile(pngPath, png, 0o644); err != nil {
			return err
		}
	}
	if htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := plot.RenderDistributionHTML(f, d); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
	}
	return nil
}
