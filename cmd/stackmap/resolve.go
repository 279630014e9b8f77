package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yousuf/stackmap/internal/render"
	"github.com/yousuf/stackmap/internal/stacktrace"
)

// input is one trace to analyze, named for output headers
type input struct {
	name string
	text string
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		workspace    string
		format       string
		showInternal bool
		showOriginal bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [trace-file...]",
		Short: "Resolve stack traces against a workspace",
		Long: `Parses each trace file (or stdin when none is given) and prints the
resolved frames. Multiple files are analyzed concurrently and printed in
argument order.`,
		Example: `  pbpaste | stackmap resolve --workspace . --format text
  stackmap resolve crash1.log crash2.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("invalid format %q (must be json or text)", format)
			}
			if workspace == "" {
				workspace = a.cfg.WorkspaceRoot
			}

			inputs, err := readInputs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			analyzer, err := a.cfg.NewAnalyzer(a.logger)
			if err != nil {
				return err
			}

			results := analyzeAll(analyzer, inputs, workspace)

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, results)
			}

			opts := render.Options{ShowInternal: showInternal, ShowOriginal: showOriginal}
			for i, res := range results {
				if len(inputs) > 1 {
					fmt.Fprintf(out, "== %s ==\n", inputs[i].name)
				}
				if err := render.Text(out, res, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (default: config workspace_root)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or text")
	cmd.Flags().BoolVar(&showInternal, "show-internal", false, "Include internal frames in text output")
	cmd.Flags().BoolVar(&showOriginal, "show-original", false, "Include the original trace line in text output")

	return cmd
}

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [trace-file]",
		Short: "Print the runtime that produced a stack trace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stacktrace.Detect(inputs[0].text))
			return nil
		},
	}
}

// readInputs reads every named file concurrently, or stdin when none are named.
func readInputs(stdin io.Reader, paths []string) ([]input, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []input{{name: "stdin", text: string(data)}}, nil
	}

	inputs := make([]input, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read trace: %w", err)
			}
			inputs[i] = input{name: path, text: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// analyzeAll runs the analyzer over every input concurrently, keeping input order.
func analyzeAll(analyzer *stacktrace.Analyzer, inputs []input, workspace string) []stacktrace.Result {
	results := make([]stacktrace.Result, len(inputs))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = analyzer.Analyze(in.text, workspace)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeJSON(w io.Writer, results []stacktrace.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}
