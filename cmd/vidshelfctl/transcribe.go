package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/client"
	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/poller"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTranscribeCmd(v *viper.Viper) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "transcribe <videoId>...",
		Short: "Start transcription jobs",
		Long: "Start a transcription job for every video id. A video that already has a " +
			"running job is watched instead of restarted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(v)
			defer c.Close()
			out := cmd.OutOrStdout()

			var jobs []*job.Job
			var startErrs []error
			for _, videoID := range args {
				j, err := c.StartTranscription(cmd.Context(), videoID)
				var apiErr *client.APIError
				switch {
				case err == nil:
					fmt.Fprintf(out, "%s\t%s\tstarted\n", videoID, j.ID)
				case errors.As(err, &apiErr) && apiErr.Job != nil:
					j = apiErr.Job
					fmt.Fprintf(out, "%s\t%s\talready %s\n", videoID, j.ID, j.Status)
				default:
					fmt.Fprintf(out, "%s\t-\t%v\n", videoID, err)
					startErrs = append(startErrs, fmt.Errorf("%s: %w", videoID, err))
					continue
				}
				jobs = append(jobs, j)
			}

			if watch && len(jobs) > 0 {
				if err := watchJobs(cmd.Context(), out, c, jobs, interval); err != nil {
					startErrs = append(startErrs, err)
				}
			}
			return errors.Join(startErrs...)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll the jobs until they finish")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "poll interval")
	return cmd
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <jobId>",
		Short: "Poll an existing job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c := newClient(v)
			defer c.Close()

			j, err := c.GetJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			return watchJobs(cmd.Context(), cmd.OutOrStdout(), c, []*job.Job{j}, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "poll interval")
	return cmd
}

// watchJobs runs one poller per job and waits for all of them. Cancelling ctx
// stops every poller; the jobs keep running on the server.
func watchJobs(ctx context.Context, out io.Writer, c *client.Client, jobs []*job.Job, interval time.Duration) error {
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	pollers := make([]*poller.Poller, 0, len(jobs))
	for _, j := range jobs {
		if j.Status.Terminal() {
			printf("%s\t%s\t%s\n", j.TargetID, j.ID, j.Status)
			continue
		}

		last := j.Status
		p := poller.New(c, j.ID, poller.Options{
			Interval: interval,
			OnStatus: func(cur *job.Job) {
				if cur.Status != last {
					last = cur.Status
					printf("%s\t%s\t%s\n", cur.TargetID, cur.ID, cur.Status)
				}
			},
			OnSuccess: func(cur *job.Job) {
				tr, err := c.GetTranscript(ctx, cur.TargetID)
				if err != nil {
					printf("%s\t%s\ttranscript unavailable: %v\n", cur.TargetID, cur.ID, err)
					return
				}
				printf("%s\t%s\ttranscript ready (%d chars)\n", cur.TargetID, cur.ID, len([]rune(tr.Content)))
			},
			OnFailure: func(cur *job.Job, detail string) {
				printf("%s\t%s\terror: %s\n", cur.TargetID, cur.ID, detail)
			},
		})
		if err := p.Start(ctx); err != nil {
			return err
		}
		pollers = append(pollers, p)
	}

	var failed, lost int
	for _, p := range pollers {
		<-p.Done()
		switch p.State() {
		case poller.StateStoppedFailure:
			failed++
		case poller.StateStoppedExternal:
			if ctx.Err() == nil {
				lost++
				printf("-\t-\tstopped watching: %v\n", p.Err())
			}
		}
	}
	for _, j := range jobs {
		if j.Status == job.StatusFailed {
			failed++
		}
	}

	switch {
	case ctx.Err() != nil:
		return nil
	case failed > 0 || lost > 0:
		return fmt.Errorf("%w: %d failed, %d lost of %d jobs", common.ErrInternal, failed, lost, len(jobs))
	}
	return nil
}
