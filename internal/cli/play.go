package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbox/agentbox/internal/playback"
	"github.com/agentbox/agentbox/internal/timeline"
	"github.com/agentbox/agentbox/internal/trace"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database string
	Speed    float64
	From     float64
	Interval time.Duration
}

// PlayedEvent is one event reported during a terminal replay.
type PlayedEvent struct {
	Offset  string `json:"offset"`
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// PlayResult holds the replay outcome.
type PlayResult struct {
	SessionID string        `json:"session_id"`
	Duration  string        `json:"duration"`
	Speed     float64       `json:"speed"`
	Events    []PlayedEvent `json:"events"`
	Progress  float64       `json:"final_progress"`
	Stopped   bool          `json:"stopped,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <session-id>",
		Short: "Replay a session in the terminal",
		Long: `Replay a recorded session against a virtual clock.

Playback is paced: one timeline second stretches over ten wall-clock
seconds at 1x speed, and very short sessions replay over a fixed
two-second window. Each event is printed as the virtual clock passes
its start, with the offset from session start.

Examples:
  agentbox play demo-0001 --db ./agentbox.db
  agentbox play demo-0001 --db ./agentbox.db --speed 20
  agentbox play demo-0001 --db ./agentbox.db --from 50 --speed 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Float64Var(&opts.Speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().Float64Var(&opts.From, "from", 0, "start position as percent of the session")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 50*time.Millisecond, "poll interval for playback status")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command, sessionID string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := loadStoredSession(ctx, st, sessionID)
	if err != nil {
		return err
	}
	if len(sess.Events) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("session has no events: %s", sessionID))
	}

	tl := timeline.Build(sess, trace.BuildTree(sess))

	player := playback.New()
	player.Load(tl)
	if err := player.SetSpeed(opts.Speed); err != nil {
		return WrapExitError(ExitCommandError, "invalid speed", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format != "json" {
		fmt.Fprintf(w, "Replaying %s (%s)\n", sess.Name, sess.ID)
		fmt.Fprintf(w, "Duration: %s  Events: %d  Speed: %gx\n",
			playback.FormatDuration(tl.Duration()), tl.Len(), opts.Speed)
		fmt.Fprintln(w)
	}

	played, stopped := watchPlayback(ctx, player, tl, opts, w)

	final := player.Status()
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(PlayResult{
			SessionID: sess.ID,
			Duration:  playback.FormatDuration(tl.Duration()),
			Speed:     final.Speed,
			Events:    played,
			Progress:  final.Progress,
			Stopped:   stopped,
		})
	}

	fmt.Fprintln(w)
	if stopped {
		fmt.Fprintf(w, "Stopped at %.0f%% (%d/%d events)\n", final.Progress, len(played), tl.Len())
	} else {
		fmt.Fprintf(w, "Finished at %.0f%% (%d/%d events)\n", final.Progress, len(played), tl.Len())
	}
	return nil
}

// watchPlayback starts the player and polls it until autostop or the
// context is canceled. Events are reported as the virtual clock passes
// their starts; events with unparsable starts flush at the end, where
// the sequence puts them. Reports whether the replay was stopped early.
func watchPlayback(ctx context.Context, player *playback.Player, tl *timeline.Timeline, opts *PlayOptions, w io.Writer) ([]PlayedEvent, bool) {
	played := []PlayedEvent{}
	next := 0

	flush := func(limit float64, all bool) {
		for next < tl.Len() {
			ev := tl.At(next)
			if !all && !(ev.Start.Valid() && float64(ev.Start) <= limit) {
				break
			}
			offset := "-"
			if ev.Start.Valid() {
				offset = playback.FormatOffset(float64(ev.Start), tl.Start())
			}
			entry := PlayedEvent{
				Offset:  offset,
				EventID: ev.ID,
				Name:    ev.Name,
				Type:    string(ev.Type),
			}
			played = append(played, entry)
			if opts.Format != "json" {
				fmt.Fprintf(w, "[%8s] %s (%s)\n", entry.Offset, entry.Name, entry.Type)
			}
			next++
		}
	}

	if opts.From > 0 {
		player.SeekToProgress(opts.From)
		// Events before the start position are skipped, not replayed.
		pos := player.Status().Virtual
		for next < tl.Len() && tl.At(next).Start.Valid() && float64(tl.At(next).Start) <= pos {
			next++
		}
	}

	player.Play()
	flush(player.Status().Virtual, false)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return played, true
		case <-ticker.C:
			st := player.Status()
			if !st.Playing {
				flush(st.Virtual, true)
				return played, false
			}
			flush(st.Virtual, false)
		}
	}
}
