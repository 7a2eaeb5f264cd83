package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/Alfresco/SearchServices-sub009/core/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trackOnce bool

// trackCmd runs trackers without the admin server.
var trackCmd = &cobra.Command{
	Use:   "track [tracker...]",
	Short: "Run tracker cycles",
	Long: `Runs the named trackers, or all of them, on their cron cadence until interrupted.

Examples:
  # One cycle of every tracker, concurrently
  track --once

  # Keep the metadata and cascade trackers running
  track metadata cascade`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer l.Sync()

		rt, err := newRuntime(cmd.Context(), cfg, l)
		if err != nil {
			return err
		}
		defer rt.Close()

		var triggers []*scheduler.Trigger
		for _, t := range rt.triggers() {
			if len(args) == 0 || slices.Contains(args, t.Name()) {
				triggers = append(triggers, t)
			}
		}
		if len(triggers) < len(args) {
			return fmt.Errorf("unknown tracker in %v", args)
		}

		if trackOnce {
			if len(args) == 0 {
				results, err := rt.core.RunAll(cmd.Context())
				for _, r := range results {
					l.Info("Cycle result", zap.String("tracker", r.Tracker), zap.Int("units", r.Units), zap.Int("errors", r.Outcome.Errors), zap.Duration("duration", r.Duration))
				}
				if err != nil {
					return err
				}
			} else if err := scheduler.RunOnce(cmd.Context(), triggers...); err != nil {
				return err
			}
			summary, err := rt.core.Summary(cmd.Context())
			if err != nil {
				return err
			}
			for _, st := range summary.Trackers {
				l.Info("Tracker state", zap.String("tracker", st.Name), zap.Int64("watermark", st.Watermark), zap.Int64("cycles", st.Cycles))
			}
			l.Info("Index state", zap.Int("error_nodes", summary.ErrorNodes), zap.Int64("generation", summary.Generation))
			return nil
		}

		sched := scheduler.New(l)
		for _, t := range triggers {
			spec := cfg.Tracker.Cron.Spec(t.Name())
			if spec == "" {
				continue
			}
			if err := sched.Add(spec, t); err != nil {
				return err
			}
		}
		sched.Start()
		l.Info("Trackers scheduled", zap.Int("trackers", len(triggers)))

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		l.Info("Stopping trackers...")
		sched.Stop()
		return nil
	},
}

func init() {
	trackCmd.Flags().BoolVar(&trackOnce, "once", false, "Run one cycle of each tracker and exit")
	RootCmd.AddCommand(trackCmd)
}
