// One-shot rhythm analysis: prints exactly one JSON document to stdout.
// Exit status is 1 only when no argument is given; analysis failures still
// exit 0 because the JSON payload itself carries the failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go-rhythm-inspector/internal/analyzer"
	"go-rhythm-inspector/internal/container"
	apperrors "go-rhythm-inspector/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const usageMessage = "Использование: analyze <audio_file_path> или --test"

var errUsage = errors.New("missing audio file argument")

// stdout is swapped out in tests
var stdout io.Writer = os.Stdout

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var testMode bool

	cmd := &cobra.Command{
		Use:           "analyze <audio_file_path>",
		Short:         "Analyze the rhythm of an audio file and print the result as JSON",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 0 && !testMode {
				printJSON(analyzer.ErrorEnvelope{Error: usageMessage})
				return errUsage
			}

			c, err := container.NewContainer()
			if err != nil {
				printJSON(analyzer.ErrorEnvelope{Error: err.Error()})
				return nil
			}
			core := c.Analyzer()

			if testMode {
				if err := core.ProbeEngine(ctx); err != nil {
					printJSON(analyzer.ErrorEnvelope{Error: apperrors.Message(err)})
					return nil
				}
				printJSON(map[string]string{
					"status":  "ok",
					"message": "Essentia доступна",
				})
				return nil
			}

			result, err := core.Analyze(ctx, args[0])
			if err != nil {
				printJSON(analyzer.ErrorEnvelope{Error: apperrors.Message(err)})
				return nil
			}
			printJSON(analyzer.AnalysisEnvelope{AudioAnalysis: result})
			return nil
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "probe the analysis engine instead of analyzing a file")
	return cmd
}

// printJSON writes one line of JSON with non-ASCII characters emitted
// literally.
func printJSON(v interface{}) {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
	}
}
