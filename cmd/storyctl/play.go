package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"story-engine/internal/judgment"
	"story-engine/internal/savestore"
	"story-engine/internal/story"
	"story-engine/internal/traversal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const localOwner = "terminal"

type playOptions struct {
	remote  bool
	backend string
	model   string
	baseURL string
	timeout time.Duration
}

func newPlayCmd(root *rootOptions) *cobra.Command {
	opts := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a story in the terminal",
		Long: `Plays the story interactively. Press Enter to continue, type a number to pick a choice,
type your answer for free-text challenges. Commands: /save, /load [token], /skip, /status, /quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, root, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "judge free-text answers with a remote model, falling back to local rules")
	cmd.Flags().StringVar(&opts.backend, "backend", judgment.BackendOllama, "remote judge backend (openai, ollama, gemini)")
	cmd.Flags().StringVar(&opts.model, "model", "", "remote judge model")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "remote judge endpoint")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", judgment.DefaultTimeout, "remote judge timeout")
	return cmd
}

func runPlay(cmd *cobra.Command, root *rootOptions, opts *playOptions) error {
	log := consoleLogger(cmd.ErrOrStderr())
	zlog := componentLogger(root.logLevel)
	defer func() { _ = zlog.Sync() }()

	g, err := story.Load(root.storyPath)
	if err != nil {
		log.Error().Err(err).Str("story", root.storyPath).Msg("Failed to load story document")
		return err
	}

	var remote judgment.RemoteClassifier
	if opts.remote {
		remote, err = judgment.NewRemoteClassifier(cmd.Context(), judgment.BackendConfig{
			Type:        opts.backend,
			BaseURL:     opts.baseURL,
			Model:       opts.model,
			APIKey:      os.Getenv("JUDGE_API_KEY"),
			HTTPTimeout: opts.timeout,
		}, nil, zlog)
		if err != nil {
			log.Error().Err(err).Str("backend", opts.backend).Msg("Failed to create remote judge")
			return err
		}
		log.Info().Str("backend", opts.backend).Str("model", opts.model).Msg("Remote judge enabled")
	}
	engine := judgment.NewEngine(judgment.NewLocalClassifier(g.Explanations(), zlog), remote,
		judgment.Config{Timeout: opts.timeout}, nil, zlog)

	game := newTerminalGame(g, engine, savestore.NewMemoryStore(), cmd.OutOrStdout(), log, zlog)
	return game.run(cmd.Context(), cmd.InOrStdin())
}

// terminalGame ведет одну сессию по строкам ввода.
type terminalGame struct {
	session *traversal.Session
	store   savestore.Store
	out     io.Writer
	log     zerolog.Logger
}

func newTerminalGame(g *story.Graph, judge traversal.Judge, store savestore.Store, out io.Writer, log zerolog.Logger, zlog *zap.Logger) *terminalGame {
	return &terminalGame{
		session: traversal.NewSession(g, judge, &terminalPresenter{out: out}, zlog),
		store:   store,
		out:     out,
		log:     log,
	}
}

// errQuit - игрок вышел сам.
var errQuit = errors.New("quit")

func (t *terminalGame) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := t.session.Start()
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for snap.Phase != traversal.PhaseComplete {
		t.prompt(snap)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(t.out, "\nInput closed, leaving the story.")
			return nil
		}

		snap, err = t.handle(ctx, snap, scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			fmt.Fprintln(t.out, "Bye.")
			return nil
		case errors.Is(err, story.ErrNodeNotFound):
			t.log.Error().Err(err).Msg("Story data is inconsistent")
			return err
		case err != nil:
			fmt.Fprintf(t.out, "! %s\n", describe(err))
		}
	}

	t.summary(snap)
	return nil
}

func (t *terminalGame) prompt(snap traversal.Snapshot) {
	switch snap.Phase {
	case traversal.PhaseAwaitingChoice:
		fmt.Fprint(t.out, "choose> ")
	case traversal.PhaseAwaitingFreeText:
		fmt.Fprint(t.out, "answer> ")
	default:
		fmt.Fprint(t.out, "[enter] ")
	}
}

func (t *terminalGame) handle(ctx context.Context, snap traversal.Snapshot, line string) (traversal.Snapshot, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/") {
		return t.command(ctx, snap, line)
	}

	switch snap.Phase {
	case traversal.PhaseAwaitingChoice:
		n, err := strconv.Atoi(line)
		if err != nil {
			return snap, fmt.Errorf("%w: type the number of a choice", traversal.ErrInvalidChoice)
		}
		return t.session.SelectChoice(n - 1)
	case traversal.PhaseAwaitingFreeText:
		res, next, err := t.session.SubmitFreeText(ctx, line)
		if err == nil && !res.Passed {
			fmt.Fprintln(t.out, "Try again, or type /skip to move on.")
		}
		return next, err
	default:
		return t.session.Advance()
	}
}

func (t *terminalGame) command(ctx context.Context, snap traversal.Snapshot, line string) (traversal.Snapshot, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return snap, errQuit
	case "/status":
		t.status(snap)
		return snap, nil
	case "/skip":
		return t.session.ResolveFailure()
	case "/save":
		token, err := t.store.Save(ctx, localOwner, savestore.FromState(snap.State, time.Now()))
		if err != nil {
			return snap, err
		}
		fmt.Fprintf(t.out, "Saved: %s\n", token)
		return snap, nil
	case "/load":
		var token string
		if len(fields) > 1 {
			token = fields[1]
		} else {
			latest, err := t.store.Latest(ctx, localOwner)
			if err != nil {
				return snap, err
			}
			token = latest
		}
		rec, err := t.store.Load(ctx, localOwner, token)
		if err != nil {
			return snap, err
		}
		restored, err := t.session.Restore(rec.State())
		if err != nil {
			return restored, fmt.Errorf("%w: %v", savestore.ErrCorruptSave, err)
		}
		return restored, nil
	default:
		return snap, fmt.Errorf("unknown command %s", fields[0])
	}
}

func (t *terminalGame) status(snap traversal.Snapshot) {
	fmt.Fprintf(t.out, "at %s (%s)\n", snap.State.Ref(), snap.Phase)
	if tokens := snap.State.TokenList(); len(tokens) > 0 {
		fmt.Fprintf(t.out, "tokens: %s\n", strings.Join(tokens, ", "))
	}
	t.scores(snap.State.Scores)
}

func (t *terminalGame) summary(snap traversal.Snapshot) {
	fmt.Fprintln(t.out, "\n=== The End ===")
	fmt.Fprintf(t.out, "tokens collected: %d\n", len(snap.State.TokenList()))
	t.scores(snap.State.Scores)
}

func (t *terminalGame) scores(scores map[string]int) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(t.out, "  %s: %d\n", k, scores[k])
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, traversal.ErrEmptyInput):
		return "Please type an answer."
	case errors.Is(err, traversal.ErrInvalidChoice):
		return "That is not one of the choices."
	case errors.Is(err, traversal.ErrInvalidPhase):
		return "That does not apply right now."
	case errors.Is(err, savestore.ErrNotFound):
		return "No such save."
	case errors.Is(err, savestore.ErrCorruptSave):
		return "That save is damaged and cannot be loaded."
	default:
		return err.Error()
	}
}
