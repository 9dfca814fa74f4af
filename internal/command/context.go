package command

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertixec/THEARCHIVE/internal/config"
	"github.com/vertixec/THEARCHIVE/internal/di"
	"github.com/vertixec/THEARCHIVE/internal/notify"
)

// sessionWait bounds how long a command waits for the stored session.
const sessionWait = 10 * time.Second

// CommandContext is a wired client plus the flags every command reads.
type CommandContext struct {
	*di.Container
	Loader   *config.Loader
	JSONMode bool

	cleanup func()
}

// Close releases the container.
func (c *CommandContext) Close() {
	if c.cleanup != nil {
		c.cleanup()
	}
}

// GetContext loads the configuration, wires the client and waits for the
// stored session to resolve. Notices raised while the command runs are
// printed to stderr unless JSON output is requested.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	dir, _ := cmd.Flags().GetString("config")
	env, _ := cmd.Flags().GetString("env")
	jsonMode, _ := cmd.Flags().GetBool("json")

	loader := config.NewLoader(dir, config.Environment(env))
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	container, cleanup, err := di.InitializeContainer(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	ctx := &CommandContext{Container: container, Loader: loader, JSONMode: jsonMode, cleanup: cleanup}

	if !jsonMode {
		unsubscribe := container.Notices.Subscribe(func(n notify.Notice) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Kind, n.Message)
		})
		ctx.cleanup = func() {
			unsubscribe()
			cleanup()
		}
	}

	waitCtx, cancel := context.WithTimeout(cmd.Context(), sessionWait)
	defer cancel()
	if _, err := container.Sessions.Wait(waitCtx); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("session did not resolve: %w", err)
	}

	container.Logger.Debug("Client ready",
		zap.Strings("config_sources", cfg.LoadedFrom),
		zap.String("backend", cfg.Store.Backend))
	return ctx, nil
}
