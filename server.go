package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// MatchHistory is the read side of the match ledger
type MatchHistory interface {
	RecentMatches(room string, limit int) ([]MatchResult, error)
	MatchCount() (int, error)
}

type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Matches     int    `json:"matches"`
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SetupRoutes configures HTTP routes. history may be nil; clientDir, when
// set, is served as static files at /.
func SetupRoutes(hub *Hub, history MatchHistory, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	if clientDir != "" {
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.Accept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.Release(ip)
			hub.log.Warn("upgrade error", "ip", ip, "err", err)
			return
		}

		client := NewClient(hub, conn, ip, r.URL.Query().Get("codec") == "msgpack")
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:      "ok",
			Rooms:       hub.rooms.Len(),
			Connections: hub.TotalConns(),
		}
		if history != nil {
			n, err := history.MatchCount()
			if err != nil {
				hub.log.Error("count matches", "err", err)
				writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
				return
			}
			resp.Matches = n
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.rooms.List())
	})

	mux.HandleFunc("GET /api/matches", func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeJSON(w, http.StatusOK, []MatchResult{})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		room := r.URL.Query().Get("room")
		if room != "" {
			var err error
			if room, err = NormalizeCode(room); err != nil {
				writeError(w, http.StatusBadRequest, "invalid room code")
				return
			}
		}
		matches, err := history.RecentMatches(room, limit)
		if err != nil {
			hub.log.Error("list matches", "err", err)
			writeError(w, http.StatusInternalServerError, "could not load matches")
			return
		}
		writeJSON(w, http.StatusOK, matches)
	})

	mux.HandleFunc("GET /api/invites/{code}", func(w http.ResponseWriter, r *http.Request) {
		token, status, msg := issueInvite(hub, r)
		if token == "" {
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, InviteMsg{Token: token, URL: hub.invites.Link(token)})
	})

	mux.HandleFunc("GET /api/invites/{code}/qr", func(w http.ResponseWriter, r *http.Request) {
		token, status, msg := issueInvite(hub, r)
		if token == "" {
			writeError(w, status, msg)
			return
		}
		png, err := hub.invites.QR(hub.invites.Link(token))
		if err != nil {
			hub.log.Error("render qr", "err", err)
			writeError(w, http.StatusInternalServerError, "could not render code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	return mux
}

// issueInvite validates the request and signs a token. On failure the
// token is empty and status/msg describe the error.
func issueInvite(hub *Hub, r *http.Request) (string, int, string) {
	if hub.invites == nil {
		return "", http.StatusNotFound, "invites disabled"
	}
	code, err := NormalizeCode(r.PathValue("code"))
	if err != nil {
		return "", http.StatusBadRequest, "invalid room code"
	}
	role, err := ParseInviteRole(r.URL.Query().Get("role"))
	if err != nil {
		return "", http.StatusBadRequest, err.Error()
	}
	if role == InviteSpectator && hub.rooms.Get(code) == nil {
		return "", http.StatusNotFound, "room does not exist"
	}
	token, err := hub.invites.Issue(code, role)
	if err != nil {
		hub.log.Error("issue invite", "room", code, "err", err)
		return "", http.StatusInternalServerError, "could not issue invite"
	}
	return token, http.StatusOK, ""
}
