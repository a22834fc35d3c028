package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/bridge"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/ratelimit"
)

var (
	serveListenAddr   string
	serveFreshSession bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenAddr, "listen-addr", "", "WebSocket bridge listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveFreshSession, "fresh-session", false, "Clear session state (queue, tab origins) before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket bridge server",
	Long:  "Runs the request lifecycle engine behind a WebSocket endpoint.\nPages connect through the extension bridge; pending requests are\napproved or rejected via the approve/reject commands or the MCP surface.\nSupports hot-reload of the chain registry and contracts files.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openStackFresh(cfgFile, serveFreshSession)
	if err != nil {
		return err
	}
	defer s.Close()

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: s.cfg.RateLimit.MaxRequests,
		Window:      s.cfg.RateLimitWindow(),
	})
	srv := bridge.NewServer(s.orch, bridge.WithRateLimiter(limiter))
	s.orch.BindEvents(srv)

	addr := s.cfg.ListenAddr
	if serveListenAddr != "" {
		addr = serveListenAddr
	}

	// Hot-reload watcher for the chain registry, denylist, and
	// contracts files.
	reload := func() error {
		if err := s.registry.Reload(); err != nil {
			return err
		}
		if err := s.denylist.Reload(); err != nil {
			return err
		}
		if s.cfg.Decode.ContractsFile != "" {
			if err := s.tables.LoadContractsFile(s.cfg.Decode.ContractsFile); err != nil {
				return err
			}
			s.decoder.ClearCache()
		}
		return nil
	}
	watchPaths := []string{s.cfg.ChainsFile, s.cfg.DenylistFile, s.cfg.Decode.ContractsFile}
	reloader, err := bridge.NewReloader(reload, watchPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reloader != nil {
		go reloader.Run(ctx)
	}
	go s.queue.RunSweeper(ctx)
	go srv.RunSweeper(ctx, 30*time.Second)

	httpSrv := &http.Server{Addr: addr, Handler: srv}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down bridge server...")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "walletguard bridge listening on %s\n", addr)
	fmt.Fprintf(os.Stderr, "State: %s\n", s.cfg.DBPath)
	fmt.Fprintf(os.Stderr, "Chains: %s (hot-reload enabled)\n", s.cfg.ChainsFile)
	fmt.Fprintln(os.Stderr)

	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
