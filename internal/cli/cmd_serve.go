package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"medshelf/m/internal/api"
	"medshelf/m/internal/gate"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(deps commandDeps) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the medicine API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("serve does not accept positional arguments")
			}
			s, err := openSession(cmd.Context(), deps, true)
			if err != nil {
				return mapCommandError(err)
			}
			defer s.Close()

			if port != "" {
				s.cfg.HTTP.Port = port
			}
			handler := api.New(s.repo, gate.New(s.cfg.Gate), s.metrics, s.logger)
			srv := &http.Server{
				Addr:              ":" + s.cfg.HTTP.Port,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return mapCommandError(err)
			}
			return mapCommandError(serve(cmd.Context(), srv, ln, s))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from config)")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, s *session) error {
	s.logger.Info("medshelf server starting", "addr", ln.Addr().String(), "store", s.handle.Name())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

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
	s.logger.Info("medshelf server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
