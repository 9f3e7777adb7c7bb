// Package cli is the stocksync command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stocksync/internal/api"
	"github.com/JonMunkholm/stocksync/internal/config"
	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/logging"
	"github.com/JonMunkholm/stocksync/internal/store"
	"github.com/JonMunkholm/stocksync/internal/tui"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Builder creates the service for a command. The returned close function
// releases the store.
type Builder func(ctx context.Context, cfg *config.Config, opts ...core.ControllerOption) (*core.Service, func() error, error)

// app carries state shared by the commands of one invocation.
type app struct {
	build   Builder
	cfg     *config.Config
	logOut  io.WriteCloser
	relay   *tui.Relay
	svc     *core.Service
	closeFn func() error
}

// NewRootCmd returns the root command. A nil build uses BuildService.
func NewRootCmd(build Builder) *cobra.Command {
	if build == nil {
		build = BuildService
	}
	a := &app{build: build, relay: tui.NewRelay()}

	root := &cobra.Command{
		Use:   "stocksync",
		Short: "Upload stock spreadsheets and reconcile them with the stock table",
		Long: `stocksync uploads a stock spreadsheet to the comparison service, keeps
the newly inserted and missing records locally and builds a WhatsApp
share report from them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logOut = logging.Setup(cfg.Logging)
			slog.Debug("configuration loaded", "config", cfg.String())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.AddCommand(
		newUploadCmd(a),
		newRecordsCmd(a),
		newShareCmd(a),
		newClearCmd(a),
		newLastRecordCmd(a),
		newDeleteTableCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and prints a mapped user error on failure.
func Execute(ctx context.Context, stderr io.Writer) int {
	root := NewRootCmd(nil)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", core.FormatUserError(err))
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

// service builds the service on first use.
func (a *app) service(ctx context.Context) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, closeFn, err := a.build(ctx, a.cfg, core.WithProgress(a.relay.Func()))
	if err != nil {
		return nil, err
	}
	a.svc, a.closeFn = svc, closeFn
	return svc, nil
}

func (a *app) close() error {
	var err error
	if a.svc != nil {
		a.svc.Close()
		a.svc = nil
	}
	if a.closeFn != nil {
		err = a.closeFn()
		a.closeFn = nil
	}
	if a.logOut != nil {
		a.logOut.Close()
		a.logOut = nil
	}
	return err
}

// BuildService opens the configured store and the comparison service client.
func BuildService(ctx context.Context, cfg *config.Config, opts ...core.ControllerOption) (*core.Service, func() error, error) {
	policy, err := core.ParsePolicy(cfg.Share.Policy)
	if err != nil {
		return nil, nil, err
	}

	backend, err := store.Open(ctx, store.Options{
		Kind:        store.Kind(strings.ToLower(cfg.Store.Kind)),
		Path:        cfg.Store.Path,
		DatabaseURL: cfg.Store.DatabaseURL,
		Table:       cfg.Store.Table,
		RedisAddr:   cfg.Store.RedisAddr,
		RedisDB:     cfg.Store.RedisDB,
		Prefix:      cfg.Store.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	client, err := api.New(api.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		UploadTimeout: cfg.Upload.Timeout,
		LastRecordTTL: cfg.API.LastRecordTTL,
	})
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	svc := core.NewService(client, core.NewRecordStore(backend), core.ServiceOptions{
		Policy: policy,
		Phone:  cfg.Share.Phone,
		Mobile: cfg.Share.Mobile,
	}, opts...)

	slog.Debug("service ready", "store", cfg.Store.Kind, "api", cfg.API.BaseURL, "policy", policy)
	return svc, backend.Close, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stocksync %s\n", Version)
		},
	}
}
