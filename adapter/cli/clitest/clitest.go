// Package clitest drives the gritline CLI against an in-memory container.
package clitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	internalApp "github.com/felixgeelhaar/gritline/internal/app"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// UserID is the fixed user the test app runs as.
var UserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var registered sync.Map

// NewApp builds a memory-backed container, installs it as the global CLI
// app and registers the given command groups on the root command.
func NewApp(t *testing.T, groups ...*cobra.Command) *internalApp.Container {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		LogLevel:       "error",
		UserID:         UserID.String(),
		DatabaseDriver: "memory",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(
		container.CreateInstanceHandler,
		container.UpdateInstanceHandler,
		container.DeleteInstanceHandler,
		container.CompleteInstanceHandler,
		container.RecordResponseHandler,
		container.GetInstanceHandler,
		container.ListInstancesHandler,
		container.GetScoreHandler,
		container.WarmScoresHandler,
		container.SetSurveyProfileHandler,
	)
	app.SetCurrentUserID(UserID)
	app.SetCatalog(container.Catalog)
	app.SetHealthRegistry(container.Health)
	cli.SetApp(app)
	cli.SetLogger(logger)
	t.Cleanup(func() { cli.SetApp(nil) })

	for _, group := range groups {
		if _, loaded := registered.LoadOrStore(group, true); !loaded {
			cli.AddCommand(group)
		}
	}
	return container
}

// Run executes the root command with args and returns everything it printed.
// Flags are reset first so values do not leak between runs.
func Run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := cli.RootCommand()
	resetFlags(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// RunJSON executes the command with --json and decodes its output into v.
func RunJSON(t *testing.T, v any, args ...string) {
	t.Helper()

	out, err := Run(t, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
