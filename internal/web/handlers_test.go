package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/tictactoe-timetravel/internal/app"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService()
	h := NewServer(s)
	return s, h
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `action="/game"`)
	assert.Contains(t, body, "htmx.org")
	assert.NotContains(t, body, "Continue game")
}

func TestIndexOffersContinue(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: gameCookie, Value: gs.ID})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Contains(t, rr.Body.String(), "/game/"+gs.ID)
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(t, h, "/game", nil)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Result().Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/game/"), "location %q", loc)

	id := strings.TrimPrefix(loc, "/game/")
	_, ok := svc.Get(id)
	assert.True(t, ok)

	var cookie string
	for _, c := range rr.Result().Cookies() {
		if c.Name == gameCookie {
			cookie = c.Value
		}
	}
	assert.Equal(t, id, cookie)
}

func TestGamePage(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	req := httptest.NewRequest(http.MethodGet, "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `hx-ext="sse"`)
	assert.Contains(t, body, "/game/"+gs.ID+"/events")
	assert.Contains(t, body, `id="board"`)
	assert.Contains(t, body, "Next player: X")
	assert.Contains(t, body, "Go to game start")
}

func TestGamePageNotFound(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/game/missing", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="board"`)
	assert.Contains(t, body, "Next player: O")
	assert.Contains(t, body, "You are at move #1 (1, 1)")

	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 2, latest.History.Len())
}

func TestPlayRejectionsRenderAlert(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"0"}})

	cases := []struct {
		cell string
		want string
	}{
		{"0", "Cell is occupied"},
		{"9", "Out of bounds"},
		{"x", "Out of bounds"},
	}
	for _, tc := range cases {
		rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {tc.cell}})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), tc.want, "cell %q", tc.cell)
	}

	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 2, latest.History.Len())
}

func TestWinHighlightsLineAndBlocksPlay(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	var rr *httptest.ResponseRecorder
	for _, c := range []string{"0", "4", "1", "5", "2"} {
		rr = postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {c}})
	}
	body := rr.Body.String()
	assert.Contains(t, body, "Winner: X")
	assert.Equal(t, 3, strings.Count(body, "square highlight"))

	rr = postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"8"}})
	assert.Contains(t, rr.Body.String(), "Game is over")
}

func TestJumpOrderAndReset(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	for _, c := range []string{"0", "4", "8"} {
		postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {c}})
	}

	rr := postForm(t, h, "/game/"+gs.ID+"/jump", url.Values{"move": {"1"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "You are at move #1 (0, 0)")
	assert.Contains(t, rr.Body.String(), "Go to move #3 (2, 2)")

	rr = postForm(t, h, "/game/"+gs.ID+"/jump", url.Values{"move": {"99"}})
	assert.Contains(t, rr.Body.String(), "No such move")
	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 1, latest.History.CurrentMove())

	rr = postForm(t, h, "/game/"+gs.ID+"/order", nil)
	body := rr.Body.String()
	assert.Contains(t, body, "Sort ascending")
	assert.Less(t, strings.Index(body, "move #3"), strings.Index(body, "game start"))

	rr = postForm(t, h, "/game/"+gs.ID+"/reset", nil)
	assert.Contains(t, rr.Body.String(), "Next player: X")
	latest, _ = svc.Get(gs.ID)
	assert.Equal(t, 1, latest.History.Len())
}

func TestActionsOnUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	for _, action := range []string{"play", "jump", "reset", "order"} {
		rr := postForm(t, h, "/game/missing/"+action, url.Values{"cell": {"0"}, "move": {"0"}})
		assert.Equal(t, http.StatusNotFound, rr.Code, action)
	}
}

func TestStateEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	for _, c := range []int{0, 4, 1, 5, 2} {
		_, err := svc.Play(gs.ID, c)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/game/"+gs.ID+"/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got stateJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, gs.ID, got.ID)
	assert.Equal(t, "win", got.Outcome.Result)
	assert.Equal(t, "X", got.Outcome.Winner)
	assert.Equal(t, []int{0, 1, 2}, got.Outcome.Line)
	assert.Equal(t, 5, got.CurrentMove)
	assert.Len(t, got.Moves, 6)
	assert.Equal(t, "O", got.Board[4])
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	rrCreate := postForm(t, h, "/game", nil)
	loc := rrCreate.Result().Header.Get("Location")
	require.NotEmpty(t, loc)

	req := httptest.NewRequest(http.MethodGet, loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Result().Header.Get("Content-Type"), "text/event-stream"))
}

func TestEventsStreamBroadcastsBoard(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/game/"+gs.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// wait until the stream is subscribed before playing
	played := make(chan error, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, err := svc.Play(gs.ID, 4)
		played <- err
	}()

	sc := bufio.NewScanner(resp.Body)
	var sawEvent, sawBoard bool
	for sc.Scan() {
		line := sc.Text()
		if line == "event: board" {
			sawEvent = true
		}
		if sawEvent && strings.Contains(line, "Next player: O") {
			sawBoard = true
			break
		}
	}
	require.NoError(t, <-played)
	assert.True(t, sawBoard, "expected board event on stream")
}

func TestWriteEventSplitsLines(t *testing.T) {
	var sb strings.Builder
	writeEvent(&sb, "board", []byte("<a>\n<b>"))
	assert.Equal(t, "event: board\ndata: <a>\ndata: <b>\n\n", sb.String())
}
