package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

type generateOptions struct {
	course  string
	noCache bool
	out     string
	asJSON  bool
}

func newGenerateCmd(state *cliState) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate a lesson and practice tasks for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.GenerateCourseRequest{
				Query:      strings.Join(args, " "),
				CourseName: opts.course,
			}
			if opts.noCache {
				useCache := false
				req.UseCache = &useCache
			}
			if err := req.Validate(); err != nil {
				return err
			}

			app, err := state.app()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Assembler.Generate(cmd.Context(), req.Query, req.CourseName, req.CacheEnabled())
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.out != "" {
				f, err := os.Create(opts.out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := writeResult(w, result, opts.asJSON); err != nil {
				return err
			}

			if failed := countPlaceholders(result); failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d sections could not be generated\n", failed, len(result.Metadata.Provenance.Sections))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.course, "course", "", "course the topic belongs to (default \"General\")")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "skip the cached lesson and regenerate")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")

	return cmd
}

func writeResult(w io.Writer, result *models.GenerationResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var b strings.Builder
	b.WriteString(result.Content)
	b.WriteString("\n\n---\n\n## Practice\n")
	for i, task := range result.Tasks {
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, task.Difficulty, task.Question)
		for _, opt := range task.Options {
			fmt.Fprintf(&b, "   - %s\n", opt)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func countPlaceholders(result *models.GenerationResult) int {
	n := 0
	for _, s := range result.Metadata.Provenance.Sections {
		if s.Source == models.SourceFallback {
			n++
		}
	}
	return n
}
