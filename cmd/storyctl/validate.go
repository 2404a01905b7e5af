package main

import (
	"errors"
	"fmt"

	"story-engine/internal/story"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a story document for broken links and malformed challenges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts.storyPath)
		},
	}
}

func runValidate(cmd *cobra.Command, path string) error {
	log := consoleLogger(cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	g, err := story.Load(path)
	if err != nil {
		var verr *story.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintf(out, "ERROR %s\n", p)
			}
			log.Error().Str("story", path).Int("problems", len(verr.Problems)).Msg("Story document is invalid")
			return fmt.Errorf("%s: %d problem(s)", path, len(verr.Problems))
		}
		log.Error().Err(err).Str("story", path).Msg("Failed to load story document")
		return err
	}

	for _, ref := range g.Unreachable() {
		fmt.Fprintf(out, "WARN  %s is unreachable from %s\n", ref, g.Start())
	}
	fmt.Fprintf(out, "OK    %s: %q, %d chapter(s), %d node(s)\n", path, g.Title(), len(g.ChapterIDs()), g.NodeCount())
	log.Debug().Str("story", path).Msg("Story document is valid")
	return nil
}
