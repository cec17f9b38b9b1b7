package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/config"
	"github.com/maxviazov/lp-feed/internal/logger"
	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
	"github.com/maxviazov/lp-feed/internal/repository/lpapi"
	"github.com/maxviazov/lp-feed/internal/repository/memory"
	"github.com/maxviazov/lp-feed/internal/service"
	"github.com/maxviazov/lp-feed/pkg/response"
)

type source interface {
	repository.Fetcher[model.Lp]
	repository.CommentFetcher
	repository.Pinger
}

type options struct {
	configPath string
	demo       bool
	search     string
}

func execute() int {
	var opts options
	code := response.ExitOK

	cmd := &cobra.Command{
		Use:           "lpfeed",
		Short:         "Browse the LP gallery feed from the terminal",
		Long:          "Type to search (debounced), enter :next to load the next page (throttled), :order asc|desc, :size N, :retry, :comments ID, :more or :quit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				code = response.WriteError(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "use a seeded in-memory catalog instead of the API")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "initial search term")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return response.ExitInvalid
	}
	return code
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		return err
	}
	// one id per run so a session can be pulled out of a shared log file
	appLogger = appLogger.With().Str("session", uuid.NewString()).Logger()
	appLogger.Info().Bool("demo", opts.demo).Msg("config loaded")

	src, err := newSource(cfg, opts.demo, appLogger)
	if err != nil {
		return err
	}

	// check the data source with a timeout so we don't hang on start
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := src.Ping(pingCtx); err != nil {
		return fmt.Errorf("data source unavailable: %w", err)
	}

	feed, err := service.NewFeed(ctx, src, clock.Real{}, cfg.Feed, appLogger)
	if err != nil {
		return err
	}
	defer feed.Close()
	if opts.search != "" {
		if err := feed.SetSearch(opts.search); err != nil {
			return err
		}
	}

	sub := feed.Subscribe()
	defer sub.Close()

	w := &syncWriter{w: out}
	sess := newSession(feed, src, cfg.Feed, w, appLogger)
	defer sess.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, in)

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return readCommands(gctx, sess, lines)
	})
	g.Go(func() error {
		r := &renderer{out: w}
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case snap, ok := <-sub.C:
				if !ok {
					return nil
				}
				r.render(snap)
			}
		}
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scanLines forwards the lines of in until it is exhausted or ctx ends.
// A Read blocked on in is only noticed once it returns.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func newSource(cfg *config.Config, demo bool, log zerolog.Logger) (source, error) {
	if demo || cfg.API.BaseURL == "" {
		store := memory.NewStore()
		seedDemo(store)
		log.Info().Msg("using in-memory demo catalog")
		return store, nil
	}
	return lpapi.New(cfg.API, log)
}

func seedDemo(store *memory.Store) {
	genres := []string{"jazz", "rock", "ambient", "soul", "techno"}
	for i := 1; i <= 60; i++ {
		genre := genres[i%len(genres)]
		store.Insert(model.Lp{
			Title:     fmt.Sprintf("%s session vol. %d", strings.ToUpper(genre[:1])+genre[1:], i),
			Published: true,
			Tags:      []model.Tag{{ID: int64(i%len(genres)) + 1, Name: genre}},
		})
		store.SeedComments(int64(i), "Comment", i%12)
	}
}

func readCommands(ctx context.Context, sess *session, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := sess.apply(ctx, line)
			if err != nil {
				code, payload := response.MapError(err)
				sess.log.Warn().Err(err).Int("code", code).Interface("payload", payload).Msg("command failed")
			}
			if quit {
				return nil
			}
		}
	}
}

// session routes input lines to the feed or to the open comment list.
type session struct {
	feed     *service.Feed
	src      repository.CommentFetcher
	cfg      config.FeedConfig
	out      io.Writer
	log      zerolog.Logger
	comments *service.Comments
	shown    int
}

func newSession(feed *service.Feed, src repository.CommentFetcher, cfg config.FeedConfig, out io.Writer, log zerolog.Logger) *session {
	return &session{feed: feed, src: src, cfg: cfg, out: out, log: log}
}

// apply runs one input line and reports whether the session should end.
func (s *session) apply(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		return false, s.feed.SetSearch(line)
	}
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "q", "quit":
		return true, nil
	case "n", "next":
		s.feed.ReachedEnd()
		return false, nil
	case "order":
		if len(fields) < 2 {
			return false, service.InvalidField("order", "missing value")
		}
		return false, s.feed.SetOrder(fields[1])
	case "size":
		if len(fields) < 2 {
			return false, service.InvalidField("page_size", "missing value")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, service.InvalidField("page_size", "must be a number")
		}
		return false, s.feed.SetPageSize(n)
	case "retry":
		if s.comments != nil && s.comments.State().Err != nil {
			err := s.comments.Retry(ctx)
			s.printComments()
			return false, err
		}
		return false, s.feed.Retry(ctx)
	case "c", "comments":
		if len(fields) < 2 {
			return false, service.InvalidField("lp_id", "missing value")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return false, service.InvalidField("lp_id", "must be a number")
		}
		return false, s.openComments(ctx, id)
	case "more":
		if s.comments == nil {
			return false, service.InvalidField("command", "open a comment list with :comments ID first")
		}
		err := s.comments.LoadMore(ctx)
		s.printComments()
		return false, err
	default:
		return false, service.InvalidField("command", "unknown command "+fields[0])
	}
}

// openComments replaces the open comment list with the one of lpID.
func (s *session) openComments(ctx context.Context, lpID int64) error {
	c, err := service.NewComments(s.src, lpID, clock.Real{}, s.cfg, s.log)
	if err != nil {
		return err
	}
	if s.comments != nil {
		s.comments.Close()
	}
	s.comments, s.shown = c, 0
	fmt.Fprintf(s.out, "-- comments of #%d --\n", lpID)
	err = c.Load(ctx)
	s.printComments()
	return err
}

func (s *session) printComments() {
	items := s.comments.Items()
	if len(items) < s.shown {
		s.shown = 0
	}
	for _, c := range items[s.shown:] {
		fmt.Fprintf(s.out, "    > #%-4d %s\n", c.ID, c.Content)
	}
	s.shown = len(items)
	st := s.comments.State()
	status := fmt.Sprintf("    [comments=%d has_next=%t]", len(items), st.HasNext)
	if st.Err != nil {
		status += " error: " + st.Err.Error() + " (:retry)"
	}
	fmt.Fprintln(s.out, status)
}

func (s *session) close() {
	if s.comments != nil {
		s.comments.Close()
	}
}
