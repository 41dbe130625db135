package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/medilink-console/internal/server"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

var (
	serveAddr string
	watchAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a headless console session over HTTP",
	Long: `Run a headless console session over HTTP.

The session accepts queries, demo runs and identifications on /api/session
and streams every change to websocket clients on /ws.

Examples:
  medilink serve
  medilink serve --addr :8585`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.ServeAddr
		}

		ctx := cmd.Context()
		sess := newSession(ctx)
		defer sess.Close()

		return server.New(sess, collector, logger).Run(ctx, addr)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live feed of a running console server",
	Long: `Follow the live feed of a running console server and print every event.

Examples:
  medilink watch
  medilink watch --addr 10.0.0.5:8585`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := watchAddr
		if addr == "" {
			addr = cfg.ServeAddr
		}
		return watchFeed(cmd.Context(), feedURL(addr), os.Stdout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from MEDILINK_SERVE_ADDR)")
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "server address (default from MEDILINK_SERVE_ADDR)")
}

// feedURL returns the websocket URL of the live feed served at addr.
func feedURL(addr string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	return u.String()
}

// watchFeed prints events from the live feed at rawURL until the server
// closes the connection or ctx ends.
func watchFeed(ctx context.Context, rawURL string, w io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", rawURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var ev session.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("feed closed: %s", closeErr.Text)
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if line, ok := formatEvent(ev, true); ok {
			fmt.Fprintln(w, line)
		}
	}
}
