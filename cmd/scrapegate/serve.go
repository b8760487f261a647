package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scrapegate/internal/httpapi"
	"scrapegate/internal/reload"
	"scrapegate/internal/tui"
	"scrapegate/pkg/auth"
)

var (
	serveListenAddr string
	serveDashboard  bool
	serveNoReload   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatcher and REST surface until interrupted",
	Long: `serve loads the account and proxy populations, starts the dispatcher's
scheduler and health sweep, exposes the REST surface at /api/v3, and
(unless --no-reload) watches the flat files on a cron schedule for changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "override the configured HTTP listen address")
	serveCmd.Flags().BoolVar(&serveDashboard, "dashboard", false, "run the terminal dashboard instead of logging to stdout")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "disable the cron-scheduled flat-file reload watcher")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListenAddr != "" {
		cfg.HTTP.ListenAddr = serveListenAddr
	}

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	st.disp.Start()
	defer st.disp.Stop()

	var watcher *reload.Watcher
	if !serveNoReload && cfg.Reload.Enabled {
		watcher = reload.New(st.accounts, st.proxies, cfg.Paths.AccountsTxt, cfg.Paths.ProxiesTxt, st.log)
		if err := watcher.Start(cfg.Reload.Cron); err != nil {
			return fmt.Errorf("start reload watcher: %w", err)
		}
		defer watcher.Stop()
	}

	tokens, err := auth.NewManager()
	if err != nil {
		st.log.WarnWithFields("admin token manager unavailable, /stats will reject all requests", map[string]interface{}{
			"error": err.Error(),
		})
		tokens = nil
	}
	if cfg.Admin.Token != "" && tokens != nil {
		if err := tokens.Store(cfg.Admin.Token); err != nil {
			st.log.WarnWithFields("failed to persist admin token", map[string]interface{}{"error": err.Error()})
		}
	}

	server := httpapi.New(httpapi.Config{
		ListenAddr:  cfg.HTTP.ListenAddr,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, st.disp, newReferenceBackend(), tokens, st.log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var dash *tui.TUI
	if serveDashboard {
		dash = tui.New(st.disp)
		go func() {
			if err := dash.Run(); err != nil {
				st.log.WarnWithFields("dashboard exited", map[string]interface{}{"error": err.Error()})
			}
			cancel()
		}()
	} else {
		st.log.InfoWithFields("scrapegate serving", map[string]interface{}{
			"listenAddr": cfg.HTTP.ListenAddr,
			"accounts":   len(st.accounts.ListAccounts()),
			"proxies":    st.proxies.Len(),
		})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if dash != nil {
			dash.Stop()
		}
		return err
	}

	if dash != nil {
		dash.Stop()
	}
	return <-errCh
}
