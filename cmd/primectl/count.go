package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dreamware/primesplit/internal/coordinator"
	"github.com/dreamware/primesplit/internal/interval"
	"github.com/dreamware/primesplit/internal/partition"
)

func (c *cli) countCmd() *cobra.Command {
	var (
		machines int
		ranges   []string
		report   bool
	)
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Partition the ranges and count primes in-process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := parseRanges(ranges)
			if err != nil {
				return err
			}
			if report {
				shares, err := partition.Partition(rs, machines)
				if err != nil {
					return err
				}
				fmt.Fprint(c.out, partition.Report(shares))
			}

			d := coordinator.NewDispatcher(coordinator.LocalPool{}, c.log, nil)
			res, err := d.RunJob(cmd.Context(), coordinator.Job{ID: "local", Ranges: rs, WorkerCount: machines})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Total primes: %s\n", res.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&machines, "machines", "m", 1, "number of workers")
	cmd.Flags().StringArrayVarP(&ranges, "range", "r", nil, "inclusive range as start:end, repeatable")
	cmd.Flags().BoolVar(&report, "report", false, "print the distribution of ranges per worker")
	return cmd
}

// parseRanges parses "start:end" arguments.
func parseRanges(args []string) ([]interval.Range, error) {
	out := make([]interval.Range, 0, len(args))
	for _, a := range args {
		lo, hi, ok := strings.Cut(a, ":")
		if !ok {
			return nil, errors.Errorf("range %q: want start:end", a)
		}
		start, ok := new(big.Int).SetString(strings.TrimSpace(lo), 10)
		if !ok {
			return nil, errors.Errorf("range %q: bad start", a)
		}
		end, ok := new(big.Int).SetString(strings.TrimSpace(hi), 10)
		if !ok {
			return nil, errors.Errorf("range %q: bad end", a)
		}
		r, err := interval.New(start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "range %q", a)
		}
		out = append(out, r)
	}
	return out, nil
}
