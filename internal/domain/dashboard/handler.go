package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Handler struct {
	resolver *Resolver
	feed     Subscriber
	sessions auth.SessionLoader
	upgrader gorillawebsocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler serves the dashboard. sessions re-checks a streaming session
// before every push; nil trusts the session for the life of the stream.
// allowedOrigins limits websocket upgrades; empty allows any origin.
func NewHandler(resolver *Resolver, feed Subscriber, sessions auth.SessionLoader, allowedOrigins []string, logger zerolog.Logger) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		resolver: resolver,
		feed:     feed,
		sessions: sessions,
		logger:   logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group, ws *echo.Group) {
	api.GET("/dashboard", h.GetDashboard, auth.RequireSession())
	ws.GET("/dashboard", h.Stream, auth.RequireSession())
}

func (h *Handler) GetDashboard(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, h.resolver.Resolve(c.Request().Context(), s))
}

// Stream upgrades to a websocket and pushes a Result on connect and after
// every relevant change. The stream ends when the client disconnects or the
// session ends; a result resolved for an ended session is never sent.
func (h *Handler) Stream(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var endOnce sync.Once
	endStream := func() {
		endOnce.Do(func() {
			h.logger.Debug().Str("session_id", s.ID).Msg("session ended, closing dashboard stream")
			_ = conn.WriteControl(gorillawebsocket.CloseMessage,
				gorillawebsocket.FormatCloseMessage(gorillawebsocket.ClosePolicyViolation, "session ended"),
				time.Now().Add(writeWait))
			cancel()
		})
	}

	ended := h.feed.Subscribe(changefeed.TopicSessions)
	defer ended.Close()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ended.C:
				if !ok {
					return
				}
				if ev.Type == changefeed.EventSessionEnded && ev.RecordID == s.ID {
					endStream()
					return
				}
			}
		}
	}()

	go h.readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !h.sessionActive(ctx, s) {
					endStream()
					return
				}
				if err := conn.WriteControl(gorillawebsocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	err = h.resolver.Watch(ctx, h.feed, s, func(res *Result) {
		if !h.sessionActive(ctx, s) {
			endStream()
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(res); err != nil {
			h.logger.Debug().Err(err).Msg("dashboard stream write failed")
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Warn().Err(err).Msg("dashboard stream ended")
	}
	return nil
}

// sessionActive reports whether s is still live. A lookup failure keeps the
// stream open.
func (h *Handler) sessionActive(ctx context.Context, s *auth.Session) bool {
	if h.sessions == nil || s == nil {
		return true
	}
	cur, err := h.sessions.ResolveSession(ctx, s.ID)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn().Err(err).Str("session_id", s.ID).Msg("dashboard stream session check failed")
		}
		return true
	}
	return cur != nil
}

// readPump discards client frames and cancels the stream when the
// connection closes.
func (h *Handler) readPump(conn *gorillawebsocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
