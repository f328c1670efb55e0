/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/scoreboard/board"
	"github.com/Seednode/scoreboard/viewer"
)

const reconnectDelay = 2 * time.Second

type watchConfig struct {
	url    string
	secret string
	width  float64
	height float64
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cfg := &watchConfig{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running scoreboard from the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVar(&cfg.url, "url", "ws://localhost:3000/ws", "websocket endpoint of the scoreboard (env: SCOREBOARD_URL)")
	fs.StringVar(&cfg.secret, "secret", "", "scoreboard password; empty opens it read-only (env: SCOREBOARD_SECRET)")
	fs.Float64Var(&cfg.width, "width", 1280, "board width used for default placement (env: SCOREBOARD_WIDTH)")
	fs.Float64Var(&cfg.height, "height", 720, "board height used for default placement (env: SCOREBOARD_HEIGHT)")

	bindEnv(v, fs)

	return cmd
}

func watch(ctx context.Context, cfg *watchConfig, w io.Writer) error {
	app := viewer.New(viewer.Options{
		Container: board.Size{Width: cfg.width, Height: cfg.height},
		OnRender: func(v viewer.View) {
			if !v.Busy {
				renderView(w, v)
			}
		},
	})

	opened := false

	for {
		conn, err := viewer.Dial(ctx, cfg.url, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.url).Msg("scoreboard unreachable")
		} else {
			log.Info().Str("url", cfg.url).Msg("connected")

			if !opened {
				// The prompt is answered up front; an empty secret still
				// enters, locked.
				go func() {
					waitIdle(ctx, app)
					if err := app.OpenScoreboard(cfg.secret, true); err != nil {
						log.Warn().Err(err).Msg("could not open scoreboard")
					}
				}()
				opened = true
			}

			err = app.Run(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}

			log.Warn().Err(err).Msg("disconnected")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// waitIdle blocks until the initial load has finished.
func waitIdle(ctx context.Context, app *viewer.App) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	for {
		if v := app.View(); v.Connected && !v.Busy {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func renderView(w io.Writer, v viewer.View) {
	var b strings.Builder

	fmt.Fprintf(&b, "== %s (%s)", v.Screen, v.Lock)
	if !v.Connected {
		b.WriteString(" [local only]")
	}
	b.WriteString("\n")

	if v.Notice != "" {
		fmt.Fprintf(&b, "!! %s\n", v.Notice)
	}

	if len(v.Cards) == 0 {
		b.WriteString("No players yet\n")
	}

	for _, c := range v.Cards {
		team := viewer.Unassigned
		if c.Player.Color != nil {
			team = *c.Player.Color
		}

		fmt.Fprintf(&b, "%-20s %5d  %-12s @ %.0f,%.0f\n",
			c.Player.Name, c.Player.Score, team, c.Pos.Left, c.Pos.Top)
	}

	for _, t := range v.Teams {
		fmt.Fprintf(&b, "   team %-14s %5d\n", t.Name, t.Total)
	}

	_, _ = io.WriteString(w, b.String())
}
