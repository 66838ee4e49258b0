package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dreamware/primesplit/internal/cluster"
	"github.com/dreamware/primesplit/internal/coordinator"
	"github.com/dreamware/primesplit/internal/job"
)

func (c *cli) coordinatorURL() string {
	return strings.TrimRight(c.v.GetString("coordinator"), "/")
}

func (c *cli) submitCmd() *cobra.Command {
	var (
		machines int
		ranges   []string
		wait     bool
		poll     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job to a coordinator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := parseRanges(ranges)
			if err != nil {
				return err
			}

			var handle coordinator.JobHandle
			url := c.coordinatorURL() + "/jobs"
			if err := cluster.PostJSON(cmd.Context(), url, job.NewRequest(machines, rs), &handle); err != nil {
				return errors.Wrap(err, "submit job")
			}
			c.log.Info().Str("job", handle.ID).Str("status_url", handle.StatusURL).Msg("job submitted")
			if !wait {
				fmt.Fprintln(c.out, handle.ID)
				return nil
			}

			rec, err := waitForJob(cmd.Context(), handle.StatusURL, poll)
			if err != nil {
				return err
			}
			if rec.Status == job.StatusFailed {
				return errors.Errorf("job %s failed: %s", rec.ID, rec.Error)
			}
			fmt.Fprintf(c.out, "Total primes: %s\n", rec.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&machines, "machines", "m", 1, "number of workers")
	cmd.Flags().StringArrayVarP(&ranges, "range", "r", nil, "inclusive range as start:end, repeatable")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the job finishes and print the total")
	cmd.Flags().DurationVar(&poll, "poll-interval", 500*time.Millisecond, "status poll period with --wait")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's status and distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec job.Record
			if err := cluster.GetJSON(cmd.Context(), c.coordinatorURL()+"/jobs/"+args[0], &rec); err != nil {
				return errors.Wrapf(err, "get job %s", args[0])
			}
			return printRecord(c.out, &rec)
		},
	}
}

// waitForJob polls statusURL until the job is final or ctx is done.
func waitForJob(ctx context.Context, statusURL string, every time.Duration) (*job.Record, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		var rec job.Record
		if err := cluster.GetJSON(ctx, statusURL, &rec); err != nil {
			return nil, errors.Wrap(err, "poll job")
		}
		if rec.Status.Done() {
			return &rec, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func printRecord(out io.Writer, rec *job.Record) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", rec.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", rec.Status)
	fmt.Fprintf(tw, "Machines:\t%d\n", rec.WorkerCount)
	if rec.Total != nil {
		fmt.Fprintf(tw, "Total primes:\t%s\n", rec.Total)
	}
	if rec.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", rec.Error)
	}
	if len(rec.Distribution) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "WORKER\tNODE\tSIZE\tPRIMES\tRANGES")
		for _, a := range rec.Distribution {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.Worker, a.Node, a.Size, a.Primes, a.Ranges)
		}
	}
	return tw.Flush()
}
