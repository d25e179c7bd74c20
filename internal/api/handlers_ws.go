package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/mindoutline/internal/watch"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsMessage is what document subscribers receive.
type wsMessage struct {
	Type    string        `json:"type"` // subscribed, update, error
	Path    string        `json:"path,omitempty"`
	Version int           `json:"version,omitempty"`
	Update  *watch.Update `json:"update,omitempty"`
	Message string        `json:"message,omitempty"`
}

// handleDocumentWS streams the full tree of a vault document every time the
// file changes.
func (s *Server) handleDocumentWS(w http.ResponseWriter, r *http.Request) {
	rel, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || rel == "" {
		jsonError(w, "document path is required", http.StatusBadRequest)
		return
	}
	if s.deps.Watches == nil {
		jsonError(w, "live documents unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.deps.Vault.Stat(rel); err != nil {
		jsonError(w, err.Error(), vaultErrorStatus(err))
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := s.log.With("path", rel, "ws", true)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Warn("ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader: only control frames are expected; a read error ends the session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	id, updates, err := s.deps.Watches.Subscribe(ctx, rel)
	if err != nil {
		_ = writeWS(conn, wsMessage{Type: "error", Message: err.Error()})
		return
	}
	log = log.With("subscription", id)
	log.Info("ws subscribed")
	defer log.Info("ws closed")

	if err := writeWS(conn, wsMessage{Type: "subscribed", Path: rel}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			msg := wsMessage{Type: "update", Path: u.Path, Version: u.Version, Update: &u}
			if u.Err != "" {
				msg.Type = "error"
				msg.Message = u.Err
			}
			if err := writeWS(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
