package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaminalder/tictactoe-timetravel/internal/app"
	"github.com/jaminalder/tictactoe-timetravel/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *slog.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(gs, errMsg))
}

func writeHTML(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	var data struct{ ContinueID string }
	if id := rememberedGame(r); id != "" {
		if _, ok := h.svc.Get(id); ok {
			data.ContinueID = id
		}
	}
	writeHTML(w, renderTemplate(h.tpl.index, "base", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	rememberGame(w, gs.ID)
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	rememberGame(w, gs.ID)
	data := struct {
		ID        string
		BoardHTML template.HTML
	}{ID: gs.ID, BoardHTML: template.HTML(h.renderBoard(*gs, ""))}
	writeHTML(w, renderTemplate(h.tpl.game, "base", data))
}

// formInt reads an integer form field; anything unparsable is -1, which
// every game action rejects as out of range.
func formInt(r *http.Request, key string) int {
	_ = r.ParseForm()
	n, err := strconv.Atoi(strings.TrimSpace(r.Form.Get(key)))
	if err != nil {
		return -1
	}
	return n
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrOutOfRange):
		return "No such move"
	default:
		return "Invalid move"
	}
}

// respond renders the board fragment after an action. Rejected actions
// re-render the unchanged game with an alert.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, gs *app.GameState, err error) {
	id := chi.URLParam(r, "id")
	var errMsg string
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		errMsg = errorMessage(err)
		if g, ok := h.svc.Get(id); ok {
			gs = g
		}
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, errMsg))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Play(chi.URLParam(r, "id"), formInt(r, "cell"))
	h.respond(w, r, gs, err)
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.JumpTo(chi.URLParam(r, "id"), formInt(r, "move"))
	h.respond(w, r, gs, err)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Reset(chi.URLParam(r, "id"))
	h.respond(w, r, gs, err)
}

func (h *handlers) order(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.ToggleOrder(chi.URLParam(r, "id"))
	h.respond(w, r, gs, err)
}

type outcomeJSON struct {
	Result string `json:"result"`
	Winner string `json:"winner,omitempty"`
	Line   []int  `json:"line,omitempty"`
}

type stateJSON struct {
	ID          string             `json:"id"`
	Board       [9]string          `json:"board"`
	Status      string             `json:"status"`
	Outcome     outcomeJSON        `json:"outcome"`
	NextPlayer  string             `json:"next_player"`
	CurrentMove int                `json:"current_move"`
	Moves       []domain.MoveEntry `json:"moves"`
	Descending  bool               `json:"descending"`
}

func newStateJSON(gs app.GameState) stateJSON {
	h := gs.History
	status := h.Status()
	out := stateJSON{
		ID:          gs.ID,
		Status:      status.Text(),
		NextPlayer:  status.Next.String(),
		CurrentMove: h.CurrentMove(),
		Moves:       h.Moves(gs.Descending),
		Descending:  gs.Descending,
	}
	for i, c := range h.CurrentBoard() {
		out.Board[i] = c.String()
	}
	switch status.Outcome.Kind {
	case domain.Win:
		out.Outcome = outcomeJSON{Result: "win", Winner: status.Outcome.Player.String(), Line: status.Outcome.Line[:]}
	case domain.Draw:
		out.Outcome = outcomeJSON{Result: "draw"}
	default:
		out.Outcome = outcomeJSON{Result: "ongoing"}
	}
	return out
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newStateJSON(*gs)); err != nil {
		h.log.Error("encode state", "game_id", gs.ID, "error", err)
	}
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range strings.Split(string(payload), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
