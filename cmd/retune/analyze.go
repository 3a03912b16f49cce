package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	retune "github.com/tphakala/go-audio-retune"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Estimate the tuning reference of one or more recordings",
		Long: `Analyze every FILE concurrently and print the detected A4 reference, the
correction in cents that moves it to 440 Hz, and how many analysis frames
back the estimate.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if err := a.start(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close()) }()

			futures := make([]*retune.Future[retune.AnalysisResult], len(args))
			for i, path := range args {
				futures[i] = a.svc.Analyze(ctx, path)
			}

			w := cmd.OutOrStdout()
			var errs []error
			for i, f := range futures {
				res, err := f.Wait(ctx)
				if err != nil {
					fmt.Fprintf(w, "%s: error: %v\n", args[i], err)
					errs = append(errs, fmt.Errorf("%s: %w", args[i], err))
					continue
				}
				printAnalysis(w, args[i], res, a.svc.Trustworthy(res))
			}
			return errors.Join(errs...)
		},
	}
}

func printAnalysis(w io.Writer, path string, res retune.AnalysisResult, trusted bool) {
	if !res.Found() {
		fmt.Fprintf(w, "%s: no pitch detected\n", path)
		return
	}
	verdict := "trusted"
	if !trusted {
		verdict = "unreliable"
	}
	fmt.Fprintf(w, "%s: A4 = %.2f Hz, correction %+.2f cents, %d frames (%s)\n",
		path, res.DetectedHz, res.CentsOffset, res.Reliability, verdict)
}
