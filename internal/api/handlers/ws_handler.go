package handlers

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hireloop/interviewroom/internal/realtime"
)

type WSHandler struct {
	co       *realtime.Coordinator
	opts     realtime.ConnOptions
	upgrader websocket.Upgrader
}

// NewWSHandler accepts any origin when allowedOrigins is empty.
func NewWSHandler(co *realtime.Coordinator, opts realtime.ConnOptions, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		co:   co,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

// Interview upgrades an authenticated request and serves the realtime
// protocol until the socket closes. The identity is resolved here once.
func (h *WSHandler) Interview(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	h.co.Serve(c.Request.Context(), conn, id, h.opts)
}
