package main

import (
	"context"
	"errors"
	"iter"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coregx/spamex/stream"
	"github.com/coregx/spamex/token"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Stream a document's tokens to websocket clients",
		Long: `Serve a document over websockets, one JSON token per message.

Every client that connects receives the whole document, followed by a
normal closure. Use 'spamex match --ws' to match against it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := fileInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			src, err := in.open(cmd.Context())
			if err != nil {
				return err
			}
			toks, err := stream.Collect(cmd.Context(), src)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("Serving document", zap.String("file", in.name), zap.String("addr", ln.Addr().String()), zap.Int("tokens", len(toks)))
			return serveTokens(cmd.Context(), ln, toks)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// serveTokens serves toks on ln until ctx is done.
func serveTokens(ctx context.Context, ln net.Listener, toks []token.Token) error {
	srv := &http.Server{
		Handler: stream.Handler(func(r *http.Request) (iter.Seq[token.Token], error) {
			logger.Debug("Client connected", zap.String("remote", r.RemoteAddr))
			return slices.Values(toks), nil
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
