package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sitecheck/internal/analyzer"
	"sitecheck/internal/config"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// checkCommand analyzes URLs given as arguments, or one per stdin line, and
// prints one JSON result per line in input order. Nothing is stored.
func checkCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "check [urls...]",
		Short:        "Analyzes URLs once and prints the results as JSON lines",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no URLs given")
			}

			ctx := cmd.Context()
			siteAnalyzer := getAnalyzer(cfg, getAllowlist(ctx, cfg))

			failed, err := runChecks(ctx, siteAnalyzer, inputs, cfg.Bulk.Concurrency, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(inputs))
			}

			return nil
		},
	}

	return cmd
}

// readInputs returns args when present, otherwise the trimmed non-blank lines of r.
func readInputs(args []string, r io.Reader) ([]string, error) {
	var out []string
	if len(args) > 0 {
		for _, a := range args {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}

		return out, nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read input: %w", err)
	}

	return out, nil
}

// runChecks analyzes inputs with at most concurrency analyses in flight and
// writes the results to w in input order. It returns how many failed.
func runChecks(ctx context.Context, a analyzer.Analyzer, inputs []string, concurrency int, w io.Writer) (int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]analyzer.Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, input := range inputs {
		g.Go(func() error {
			report, err := a.Analyze(gctx, input)
			results[i] = analyzer.NewResult(input, report, err)

			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	enc := json.NewEncoder(w)
	for _, res := range results {
		if res.Status != analyzer.StatusOK {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return failed, fmt.Errorf("could not write result: %w", err)
		}
	}

	return failed, nil
}
