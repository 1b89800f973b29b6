package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

var errNoMealTimes = errors.New("no meal times configured")

type scheduleFlags struct {
	times []string
	tz    string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.times, "times", nil, "meal times in HH:MM, in feeding order (e.g. 08:00,13:00,19:00)")
	cmd.Flags().StringVar(&f.tz, "tz", "Local", "IANA timezone of the feeder")
	_ = cmd.MarkFlagRequired("times")
}

func (f *scheduleFlags) parse() ([]model.MealTime, *time.Location, error) {
	loc, err := time.LoadLocation(f.tz)
	if err != nil {
		return nil, nil, fmt.Errorf("--tz: %w", err)
	}
	times := make([]model.MealTime, 0, len(f.times))
	for _, raw := range f.times {
		mt, err := model.ParseMealTime(strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, err
		}
		times = append(times, mt)
	}
	return times, loc, nil
}

func newNextCmd() *cobra.Command {
	var flags scheduleFlags
	var at string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print when the next meal is served and how long until then",
		RunE: func(cmd *cobra.Command, args []string) error {
			times, loc, err := flags.parse()
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			// meal times are clock times of the feeder's zone
			now = now.In(loc)
			return printNextMeal(cmd.OutOrStdout(), times, now)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 instant instead of now; it is read in --tz")
	return cmd
}

func newCountdownCmd() *cobra.Command {
	var flags scheduleFlags

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Print the next meal countdown once a minute until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			times, loc, err := flags.parse()
			if err != nil {
				return err
			}
			clock := feeding.SystemClock{Location: loc}
			return countdown(cmd.Context(), cmd.OutOrStdout(), times, clock, time.Minute)
		},
	}
	flags.register(cmd)
	return cmd
}

func printNextMeal(w io.Writer, times []model.MealTime, now time.Time) error {
	next, ok := feeding.ComputeNextMeal(times, now)
	if !ok {
		return errNoMealTimes
	}
	_, err := fmt.Fprintf(w, "next meal at %s (in %s)\n", next.At.Format("Mon 02 Jan 15:04"), next)
	return err
}

// countdown prints immediately and then on every tick until ctx is done.
func countdown(ctx context.Context, w io.Writer, times []model.MealTime, clock feeding.Clock, every time.Duration) error {
	if err := printNextMeal(w, times, clock.Now()); err != nil {
		return err
	}

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := printNextMeal(w, times, clock.Now()); err != nil {
				return err
			}
		}
	}
}
