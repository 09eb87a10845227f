package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/x1syne/ai-study-agent-sub001/internal/jobs"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

var errNoPurger = errors.New("cache backend does not support purging")

func newCacheCmd(state *cliState) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generation cache",
	}

	var timeout time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := state.app()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Purger == nil {
				return errNoPurger
			}
			job := jobs.NewCachePurgerJob(app.Purger, &jobs.PurgerConfig{Timeout: timeout}, state.logger)
			removed, err := job.RunPurge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
			return nil
		},
	}
	purgeCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "deadline for the purge")

	var course string
	invalidateCmd := &cobra.Command{
		Use:   "invalidate <topic>",
		Short: "Drop cached lesson, analysis and tasks for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.InvalidateCacheRequest{Query: strings.Join(args, " "), CourseName: course}
			if err := req.Validate(); err != nil {
				return err
			}

			app, err := state.app()
			if err != nil {
				return err
			}
			defer app.Close()

			keys, err := app.Assembler.Invalidate(cmd.Context(), req.Query, req.CourseName)
			if err != nil {
				return fmt.Errorf("invalidate failed: %w", err)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	invalidateCmd.Flags().StringVar(&course, "course", "", "course the topic belongs to")

	cacheCmd.AddCommand(purgeCmd, invalidateCmd)
	return cacheCmd
}
