package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-morsectl/emulator"
	"github.com/moffa90/go-morsectl/transport"
)

// Serve defaults.
const (
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultServePath  = "/morse"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		path    string
		version string
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chip emulator to remote transports",
		Long: `Serve runs the chip emulator behind a websocket endpoint. Point a
remote transport at ws://<addr><path> to drive it.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			opts := []emulator.Option{}
			if version != "" {
				opts = append(opts, emulator.WithVersion(version))
			}
			return a.serve(cmd.Context(), ln, path, emulator.New(opts...))
		},
	}

	flags := c.Flags()
	flags.StringVar(&addr, "listen", DefaultListenAddr, "listen address")
	flags.StringVar(&path, "path", DefaultServePath, "websocket path")
	flags.StringVar(&version, "chip-version", "", "version string reported by the emulator")
	return c
}

// serve answers remote transports on ln until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener, path string, chip *emulator.Chip) error {
	ws := transport.NewServer(chip)
	ws.ErrorLog = func(msg string, err error) {
		a.logger.Warn().Err(err).Msg(msg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		a.logger.Info().
			Str("remote", r.RemoteAddr).
			Str("interface", r.Header.Get(InterfaceHeader)).
			Msg("client connected")
		ws.ServeHTTP(w, r)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info().Str("addr", ln.Addr().String()).Str("path", path).Msg("serving emulator")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info().Int("handled", chip.Handled()).Msg("emulator stopped")
	return nil
}
