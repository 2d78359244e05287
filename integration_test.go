package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

type testServer struct {
	srv   *httptest.Server
	wsURL string
	hub   *Hub
	rooms *Registry
	sink  *captureSink
}

// startTestServer spins up an httptest.Server with a Hub wired to a fresh
// registry and coordinator
func startTestServer(t *testing.T, history MatchHistory) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)

	logger := testLogger()
	rooms := NewRegistry(defaultMaxRooms, logger)
	sink := &captureSink{}
	invites, err := NewInvites("integration-secret", "http://play.test")
	require.NoError(t, err)

	hub := NewHub(NewCoordinator(rooms, sink, logger), rooms, invites, logger)
	go hub.Run()

	srv := httptest.NewServer(SetupRoutes(hub, history, tmpDir))
	t.Cleanup(func() {
		hub.CloseAll()
		rooms.Close()
		srv.Close()
	})

	return &testServer{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   hub,
		rooms: rooms,
		sink:  sink,
	}
}

// dialWS opens a WebSocket connection to the test server
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "dial WS")
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope reads one message from the WebSocket. Binary frames are a
// bare msgpack envelope; the marker byte never reaches the wire.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	require.NoError(t, err, "read WS")

	var env Envelope
	if msgType == websocket.BinaryMessage {
		require.NotEmpty(t, raw)
		require.NotEqual(t, byte(binaryMarker), raw[0])
		require.NoError(t, msgpack.Unmarshal(raw, &env))
		return env
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// readUntil skips messages until one of type msgType arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	for i := 0; i < 500; i++ {
		env := readEnvelope(t, conn)
		if env.T == msgType {
			return env
		}
	}
	t.Fatalf("no %s message received", msgType)
	return Envelope{}
}

// sendMsg sends a typed message over the WebSocket
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(Envelope{T: msgType, Data: data})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw), "write WS")
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

// ---------- WebSocket flows ----------

func TestQuickMatchOverWebSocket(t *testing.T) {
	ts := startTestServer(t, nil)

	first := dialWS(t, ts.wsURL)
	sendMsg(t, first, MsgJoinQuickMatch, nil)
	init1 := readEnvelope(t, first)
	assert.Equal(t, MsgInit, init1.T)
	assert.Equal(t, "bottom", init1.Data)
	waiting := readEnvelope(t, first)
	assert.Equal(t, MsgStatus, waiting.T)
	assert.Equal(t, StatusWaitingText, waiting.Data)

	second := dialWS(t, ts.wsURL)
	sendMsg(t, second, MsgJoinQuickMatch, nil)
	init2 := readEnvelope(t, second)
	assert.Equal(t, MsgInit, init2.T)
	assert.Equal(t, "top", init2.Data)

	for _, conn := range []*websocket.Conn{first, second} {
		found := readUntil(t, conn, MsgStatus)
		assert.Equal(t, StatusMatchFound, found.Data)
	}

	rooms := ts.rooms.List()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].Players)
	assert.False(t, rooms[0].Private)
}

func TestCodedRoomAndChat(t *testing.T) {
	ts := startTestServer(t, nil)

	a := dialWS(t, ts.wsURL)
	sendMsg(t, a, MsgJoinRoom, "Friday Night")
	assert.Equal(t, "bottom", readUntil(t, a, MsgInit).Data)

	b := dialWS(t, ts.wsURL)
	sendMsg(t, b, MsgJoinRoom, "friday-night")
	assert.Equal(t, "top", readUntil(t, b, MsgInit).Data)

	require.NotNil(t, ts.rooms.Get("friday-night"))

	sendMsg(t, b, MsgChat, "  good luck  ")
	assert.Equal(t, "TOP: good luck", readUntil(t, a, MsgChat).Data)
}

func TestSpectateUnknownRoom(t *testing.T) {
	ts := startTestServer(t, nil)

	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgJoinAsSpectator, "nobody-here")
	env := readEnvelope(t, conn)
	assert.Equal(t, MsgError, env.T)
	assert.Equal(t, "Room does not exist", env.Data)
}

func TestJoinWhileSeatedRejected(t *testing.T) {
	ts := startTestServer(t, nil)

	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgJoinQuickMatch, nil)
	readUntil(t, conn, MsgStatus)

	sendMsg(t, conn, MsgJoinRoom, "elsewhere")
	env := readUntil(t, conn, MsgError)
	assert.Equal(t, "already in a room", env.Data)
	assert.Nil(t, ts.rooms.Get("elsewhere"))
}

func TestFullRoomOverWebSocket(t *testing.T) {
	ts := startTestServer(t, nil)

	for i := 0; i < 2; i++ {
		c := dialWS(t, ts.wsURL)
		sendMsg(t, c, MsgJoinRoom, "packed")
		readUntil(t, c, MsgInit)
	}

	third := dialWS(t, ts.wsURL)
	sendMsg(t, third, MsgJoinRoom, "packed")
	assert.Equal(t, MsgFull, readEnvelope(t, third).T)
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	ts := startTestServer(t, nil)

	a := dialWS(t, ts.wsURL)
	sendMsg(t, a, MsgJoinRoom, "leavers")
	readUntil(t, a, MsgInit)
	b := dialWS(t, ts.wsURL)
	sendMsg(t, b, MsgJoinRoom, "leavers")
	readUntil(t, b, MsgInit)

	b.Close()
	readUntil(t, a, MsgPlayerLeft)
	assert.Equal(t, StatusWaitingText, readUntil(t, a, MsgStatus).Data)

	assert.Eventually(t, func() bool {
		room := ts.rooms.Get("leavers")
		return room != nil && room.PlayerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMsgpackSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the countdown")
	}
	ts := startTestServer(t, nil)

	a, _, err := websocket.DefaultDialer.Dial(ts.wsURL+"?codec=msgpack", nil)
	require.NoError(t, err)
	defer a.Close()
	sendMsg(t, a, MsgJoinRoom, "binary")
	readUntil(t, a, MsgInit)

	b := dialWS(t, ts.wsURL)
	sendMsg(t, b, MsgJoinRoom, "binary")
	readUntil(t, b, MsgInit)

	var binary bool
	a.SetReadDeadline(time.Now().Add(CountdownStep*4 + time.Second))
	for !binary {
		msgType, raw, err := a.ReadMessage()
		require.NoError(t, err)
		if msgType != websocket.BinaryMessage {
			continue
		}
		require.NotEqual(t, byte(binaryMarker), raw[0], "marker is stripped before the write")
		var env Envelope
		require.NoError(t, msgpack.Unmarshal(raw, &env))
		assert.Equal(t, MsgUpdate, env.T)
		binary = true
	}
}

func TestInviteOverWebSocket(t *testing.T) {
	ts := startTestServer(t, nil)

	var inv InviteMsg
	require.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/invites/Club%20Night", &inv))
	assert.NotEmpty(t, inv.Token)
	assert.True(t, strings.HasPrefix(inv.URL, "http://play.test/?invite="))

	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgJoinInvite, inv.Token)
	assert.Equal(t, "bottom", readUntil(t, conn, MsgInit).Data)
	require.NotNil(t, ts.rooms.Get("club-night"))

	bad := dialWS(t, ts.wsURL)
	sendMsg(t, bad, MsgJoinInvite, inv.Token+"x")
	env := readEnvelope(t, bad)
	assert.Equal(t, MsgError, env.T)
	assert.Equal(t, "invalid or expired invite", env.Data)
}

func TestPerIPConnectionLimit(t *testing.T) {
	ts := startTestServer(t, nil)

	for i := 0; i < maxConnsPerIP; i++ {
		dialWS(t, ts.wsURL)
	}
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// ---------- HTTP API ----------

func TestHealthz(t *testing.T) {
	ts := startTestServer(t, nil)

	var h healthResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/healthz", &h))
	assert.Equal(t, "ok", h.Status)
	assert.Zero(t, h.Rooms)
	assert.Zero(t, h.Matches)
}

func TestStaticClientServed(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := http.Get(ts.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
}

func TestRoomsEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)
	_, err := ts.rooms.GetOrCreate("lobby")
	require.NoError(t, err)

	var rooms []RoomInfo
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/rooms", &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "lobby", rooms[0].Code)
	assert.True(t, rooms[0].Private)
}

func TestMatchesEndpointWithoutLedger(t *testing.T) {
	ts := startTestServer(t, nil)

	var matches []MatchResult
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/matches", &matches))
	assert.Empty(t, matches)
}

func TestMatchesEndpointWithLedger(t *testing.T) {
	db := openTestDB(t)
	ended := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertMatches([]MatchResult{
		sampleMatch("alpha", ended),
		sampleMatch("beta", ended.Add(time.Minute)),
	}))
	ts := startTestServer(t, db)

	var h healthResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/healthz", &h))
	assert.Equal(t, 2, h.Matches)

	var all []MatchResult
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/matches?limit=10", &all))
	require.Len(t, all, 2)
	assert.Equal(t, "beta", all[0].Room)

	var alpha []MatchResult
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/matches?room=ALPHA", &alpha))
	require.Len(t, alpha, 1)
	assert.Equal(t, "alpha", alpha[0].Room)
}

func TestInviteEndpoints(t *testing.T) {
	ts := startTestServer(t, nil)

	status := getJSON(t, ts.srv.URL+"/api/invites/ghost?role=spectator", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = getJSON(t, ts.srv.URL+"/api/invites/lobby?role=referee", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err := ts.rooms.GetOrCreate("ghost")
	require.NoError(t, err)
	var inv InviteMsg
	assert.Equal(t, http.StatusOK, getJSON(t, ts.srv.URL+"/api/invites/ghost?role=spectator", &inv))
	claims, err := ts.hub.invites.Verify(inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "ghost", claims.Room)
	assert.Equal(t, InviteSpectator, claims.Role)

	resp, err := http.Get(ts.srv.URL + "/api/invites/ghost/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}
