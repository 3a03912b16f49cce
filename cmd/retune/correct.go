package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	retune "github.com/tphakala/go-audio-retune"
)

var errUntrustworthy = errors.New("no trustworthy pitch estimate")

func newCorrectCmd(a *app) *cobra.Command {
	var cents float64

	cmd := &cobra.Command{
		Use:   "correct INPUT OUTPUT",
		Short: "Write a copy of INPUT re-tuned to A4 = 440 Hz",
		Long: `Analyze INPUT and write a pitch-corrected copy to OUTPUT. The correction
is only applied when the analysis is trustworthy; use --cents to skip the
analysis and apply a fixed shift instead.

OUTPUT is written atomically: it only appears once the whole file has been
rendered, and an interrupted run leaves nothing behind.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if err := a.start(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close()) }()

			in, out := args[0], args[1]
			w := cmd.OutOrStdout()

			var f *retune.Future[retune.CorrectionResult]
			if cmd.Flags().Changed("cents") {
				f = a.svc.CorrectCents(ctx, in, cents, out)
			} else {
				res, err := a.svc.Analyze(ctx, in).Wait(ctx)
				if err != nil {
					return err
				}
				trusted := a.svc.Trustworthy(res)
				printAnalysis(w, in, res, trusted)
				if !trusted {
					return fmt.Errorf("%w for %s (%d frames, need %d); pass --cents to force a shift",
						errUntrustworthy, in, res.Reliability, a.svc.Config().Analysis.MinReliability)
				}
				f = a.svc.Correct(ctx, in, res, out)
			}

			// The operation watches ctx itself; waiting past cancellation
			// reports its own outcome once the output is discarded.
			res, err := f.Wait(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d frames at %d Hz, %d channels, %s, %+.2f cents (%s)\n",
				res.Destination, res.OutputFrames, res.SampleRate, res.Channels,
				res.Format, res.CentsApplied, res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().Float64Var(&cents, "cents", 0, "apply this shift in cents instead of analyzing")
	return cmd
}
