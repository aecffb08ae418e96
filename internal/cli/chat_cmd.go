// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/offline"
	"github.com/jeranaias/rigrun-route/internal/router"
)

const chatHelp = `Commands:
  /privacy         toggle local-only routing
  /tier <name>     prefer a tier (empty to clear)
  /usecase <name>  route by use case (empty to clear)
  /route <task>    show the decision without executing
  /quit            leave`

// chatSession holds the collaborators a reload may replace.
type chatSession struct {
	mu     sync.RWMutex
	cfg    *config.Config
	router *router.Router
	engine *executor.Engine
}

func (s *chatSession) snapshot() (*config.Config, *router.Router, *executor.Engine) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.router, s.engine
}

func (s *chatSession) swap(cfg *config.Config, r *router.Router, e *executor.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.router, s.engine = cfg, r, e
}

func newChatCmd(a *app) *cobra.Command {
	var (
		f       runFlags
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Route and execute prompts interactively",
		Long: `Read prompts line by line, routing and executing each one.

The character sheet is watched while the session runs; edits take effect
on the next prompt. A sheet that fails to load is reported and the
previous configuration stays active.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.newEngine(ctx, a.cfg)
			if err != nil {
				return err
			}
			sess := &chatSession{cfg: a.cfg, router: a.newRouter(a.cfg), engine: eng}

			if !noWatch {
				if w := a.watchConfig(ctx, sess); w != nil {
					defer w.Close()
				}
			}
			return a.chatLoop(ctx, sess, &f)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.noFallback, "no-fallback", false, "stop after the primary model fails")
	cmd.Flags().BoolVar(&f.noLocalFallback, "no-local-fallback", false, "skip the local last resort")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the character sheet on change")
	return cmd
}

// watchConfig reloads sess when the character sheet changes. It returns
// nil when there is no file to watch.
func (a *app) watchConfig(ctx context.Context, sess *chatSession) *config.Watcher {
	log := logging.WithComponent("cli")
	path, err := a.configFile()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Debug("character sheet not found, reload disabled", "path", path)
		return nil
	}

	w, err := config.Watch(path, 250*time.Millisecond, func(loaded *config.Config, loadErr error) {
		if loadErr != nil {
			log.Warn("character sheet reload failed, keeping previous", "error", loadErr)
			return
		}
		cfg, err := a.applyOverlays(loaded)
		if err != nil {
			log.Warn("character sheet reload failed, keeping previous", "error", err)
			return
		}
		eng, err := a.newEngine(ctx, cfg)
		if err != nil {
			log.Warn("provider setup failed, keeping previous", "error", err)
			return
		}
		offline.SetOfflineMode(cfg.Cloud.Offline)
		sess.swap(cfg, a.newRouter(cfg), eng)
		log.Info("character sheet reloaded", "path", path)
	})
	if err != nil {
		log.Warn("config watch unavailable", "error", err)
		return nil
	}
	return w
}

func (a *app) chatLoop(ctx context.Context, sess *chatSession, f *runFlags) error {
	interactive := IsTTY() && a.in == os.Stdin
	if interactive {
		fmt.Fprintln(a.out, TitleStyle.Render("rigrun-route chat")+" "+DimStyle.Render("/help for commands"))
	}

	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(a.out, HighlightStyle.Render("> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := a.chatCommand(ctx, sess, f, line); done {
				return nil
			}
			continue
		}

		cfg, r, eng := sess.snapshot()
		d, res, err := a.execute(ctx, cfg, r, eng, line, f)
		switch {
		case errors.Is(err, ErrValidationFailed):
			renderValidation(a.out, d.Validation)
		case res != nil:
			fmt.Fprintln(a.out, DimStyle.Render(fmt.Sprintf("[%s %s]", res.Model, d.Selection.Tier)))
			fmt.Fprintln(a.out, res.Response)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// chatCommand handles one slash command and reports whether to quit.
func (a *app) chatCommand(ctx context.Context, sess *chatSession, f *runFlags, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(a.out, chatHelp)
	case "/privacy":
		f.privacy = !f.privacy
		fmt.Fprintln(a.out, RenderKV("Privacy mode", fmt.Sprintf("%t", f.privacy)))
	case "/tier":
		f.tier = arg
		fmt.Fprintln(a.out, RenderKV("Preferred tier", orNone(arg)))
	case "/usecase":
		f.useCase = arg
		fmt.Fprintln(a.out, RenderKV("Use case", orNone(arg)))
	case "/route":
		if arg == "" {
			fmt.Fprintln(a.out, WarningStyle.Render("usage: /route <task>"))
			break
		}
		_, r, _ := sess.snapshot()
		d := a.route(ctx, r, arg, &f.routeFlags)
		renderDecision(a.out, &d)
	default:
		fmt.Fprintln(a.out, WarningStyle.Render("unknown command "+name))
	}
	return false
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
