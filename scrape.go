package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"snapshotfetcher/internal/coordinator"
	"snapshotfetcher/internal/table"
	"snapshotfetcher/internal/tickers"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [TICKER...]",
	Short: "Fetch snapshot tables for a ticker list and write a spreadsheet",
	Long: "Reads tickers from --file (first column of a csv or xlsx, header skipped), --tickers " +
		"or arguments, fetches each quote page in order and writes one row per ticker.",
	RunE: runScrape,
}

var (
	scrapeFile    string
	scrapeTickers string
	scrapeOut     string
	scrapeFormat  string
	scrapePreview int
)

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeFile, "file", "f", "", "Path to a csv or xlsx file whose first column holds tickers")
	scrapeCmd.Flags().StringVarP(&scrapeTickers, "tickers", "t", "", "Comma or space separated tickers")
	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "Output path (default finviz_data.<format>)")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "", "Output format: xlsx or csv (default from --out extension, else xlsx)")
	scrapeCmd.Flags().IntVar(&scrapePreview, "preview", 0, "Print the first N columns of the result table (0 disables)")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	list, err := collectTickers(args)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("no tickers given: use --file, --tickers or arguments")
	}

	format, out, err := resolveOutput(scrapeFormat, scrapeOut)
	if err != nil {
		return err
	}

	cfg, coord, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = progressLine(list, 0)
	spin.Start()

	result, runErr := coord.Run(ctx, list, func(p coordinator.Progress) {
		spin.Lock()
		spin.Suffix = progressLine(list, p.Index)
		spin.Unlock()
	})
	spin.Stop()

	if runErr != nil {
		if result.Len() == 0 {
			return fmt.Errorf("scrape interrupted: %w", runErr)
		}
		fmt.Fprintf(os.Stderr, "Interrupted after %d of %d tickers, writing partial results\n", result.Len(), len(list))
	}

	data, err := result.Encode(format, cfg.SheetName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	summary := result.Summarize()
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows (%d ok, %d failed) to %s\n",
		summary.Total, summary.Succeeded, summary.Failed, out)

	if scrapePreview > 0 {
		result.Render(cmd.OutOrStdout(), scrapePreview)
	}

	return runErr
}

func collectTickers(args []string) ([]string, error) {
	var raw []string

	if scrapeFile != "" {
		f, err := os.Open(scrapeFile)
		if err != nil {
			return nil, &tickers.InputError{Filename: scrapeFile, Message: "failed to open file", Cause: err}
		}
		defer f.Close()

		fromFile, err := tickers.FromFile(filepath.Base(scrapeFile), f)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}

	raw = append(raw, tickers.FromText(scrapeTickers)...)
	for _, arg := range args {
		raw = append(raw, tickers.FromText(arg)...)
	}

	return tickers.Normalize(raw), nil
}

func resolveOutput(formatFlag, out string) (table.Format, string, error) {
	if formatFlag == "" && out != "" {
		formatFlag = strings.TrimPrefix(filepath.Ext(out), ".")
	}

	format, err := table.ParseFormat(formatFlag)
	if err != nil {
		return "", "", err
	}

	if out == "" {
		out = format.Filename()
	}
	return format, out, nil
}

// progressLine describes the ticker about to be fetched after done of them
// have completed.
func progressLine(list []string, done int) string {
	if done >= len(list) {
		return fmt.Sprintf(" Finished %d tickers", len(list))
	}
	return fmt.Sprintf(" Fetching %s (%d/%d)...", list[done], done+1, len(list))
}
