package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/connection"
	"github.com/agentboard/agentboard/internal/journal"
	"github.com/agentboard/agentboard/internal/runtime"
	"github.com/agentboard/agentboard/internal/style"
)

type watchOptions struct {
	url     string
	journal bool
	board   bool
}

var watchFlags watchOptions

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupBoard,
	Short:   "Follow the live event stream",
	Long: `Connect to the event stream and print activity as it happens.

The board is saved to the checkpoint file whenever the connection drops and
on exit, so 'agentboard board' can show it later. With --journal every
received event is also appended to the journal for 'agentboard replay'.

Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := *cfg
		if watchFlags.url != "" {
			c.Server.URL = watchFlags.url
		}
		if cmd.Flags().Changed("journal") {
			c.Journal.Enabled = watchFlags.journal
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd.OutOrStdout(), &c, watchFlags.board)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.url, "url", "", "event stream URL (default from config)")
	watchCmd.Flags().BoolVar(&watchFlags.journal, "journal", false, "append received events to the journal")
	watchCmd.Flags().BoolVar(&watchFlags.board, "board", true, "print the board on exit")
	rootCmd.AddCommand(watchCmd)
}

// connectionOptions maps the config onto connection.Options.
func connectionOptions(c *config.Config) connection.Options {
	opts := connection.Options{
		URL:               c.Server.URL,
		ClientName:        c.Server.ClientName,
		Topics:            c.Server.Topics,
		HeartbeatInterval: c.Connection.HeartbeatInterval.Duration,
		ReconnectDelay:    c.Connection.ReconnectDelay.Duration,
		DialTimeout:       c.Connection.DialTimeout.Duration,
	}
	// Config uses zero to mean "never"; the manager uses a negative value.
	opts.MaxReconnectAttempts = c.Connection.MaxReconnectAttempts
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = -1
	}
	if c.Server.Token != "" {
		opts.Header = http.Header{"Authorization": []string{"Bearer " + c.Server.Token}}
	}
	return opts
}

// syncWriter serialises output arriving from several goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runWatch(ctx context.Context, w io.Writer, c *config.Config, printBoard bool) error {
	opts := runtime.Options{
		Connection:     connectionOptions(c),
		MaxActivity:    c.Activity.MaxItems,
		MaxProcessed:   c.Activity.MaxProcessed,
		CheckpointPath: c.CheckpointPath(),
		Logger:         logger,
	}
	if c.Journal.Enabled {
		j, err := journal.Open(c.JournalPath())
		if err != nil {
			return err
		}
		opts.Journal = j
	}

	rt := runtime.New(opts)
	out := &syncWriter{w: w}
	rt.Activity.OnAdd(func(it activity.Item) { fmt.Fprintln(out, formatActivity(it)) })

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var gaveUp atomic.Bool
	rt.Conn.OnGiveUp(func(int) {
		gaveUp.Store(true)
		cancel()
	})

	fmt.Fprintf(out, "%s watching %s\n", style.ArrowPrefix, c.Server.URL)
	if err := rt.Run(ctx); err != nil {
		style.Fwarning(out, "could not save board: %v", err)
	}
	if err := rt.JournalErr(); err != nil {
		style.Fwarning(out, "journal incomplete: %v", err)
	}

	if printBoard {
		var board bytes.Buffer
		renderBoard(&board, rt.Agents, rt.Issues, c.UI.Project, time.Now())
		fmt.Fprintf(out, "\n%s", board.String())
	}
	if gaveUp.Load() {
		err := rt.Conn.Info().LastError
		if err == nil {
			err = errors.New("connection lost")
		}
		return fmt.Errorf("gave up on %s: %w", c.Server.URL, err)
	}
	return nil
}
