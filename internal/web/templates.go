package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/jaminalder/tictactoe-timetravel/internal/app"
	"github.com/jaminalder/tictactoe-timetravel/internal/domain"
)

// Pages are executed by the "base" name; board is a standalone fragment.
type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.board-row{display:flex}
.board-row form{margin:0}
.square{width:48px;height:48px;font-size:24px;font-weight:bold}
.square.highlight{background:#ffe066}
.alert{color:#b00}
</style>
</head><body>{{template "content" .}}</body></html>`))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1>
{{if .ContinueID}}<p><a href="/game/{{.ContinueID}}">Continue game</a></p>{{end}}
<form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:board" hx-target="#board" hx-swap="outerHTML">{{.BoardHTML}}</div>
</div>`))
	board := template.Must(template.New("board").Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `<div id="board" class="game">
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  <div class="game-board">
    <div class="status">{{.Status}}</div>
    {{range .Rows}}
    <div class="board-row">
      {{range .}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/play">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit" class="square{{if .Highlight}} highlight{{end}}">{{.Symbol}}</button>
      </form>
      {{end}}
    </div>
    {{end}}
  </div>
  <div class="game-info">
    <ol class="moves {{if .Descending}}desc{{else}}asc{{end}}">
      {{range .Moves}}
      <li>{{if .Current}}<span class="current">{{.Description}}</span>{{else}}
        <form hx-post="/game/{{$.ID}}/jump" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/jump">
          <input type="hidden" name="move" value="{{.Move}}">
          <button type="submit">{{.Description}}</button>
        </form>{{end}}
      </li>
      {{end}}
    </ol>
    <form hx-post="/game/{{.ID}}/order" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/order">
      <button type="submit">{{if .Descending}}Sort ascending{{else}}Sort descending{{end}}</button>
    </form>
    <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/reset">
      <button type="submit">Reset history</button>
    </form>
  </div>
</div>`

type cellView struct {
	Index     int
	Symbol    string
	Highlight bool
}

type boardData struct {
	ID         string
	Status     string
	Rows       [3][3]cellView
	Moves      []domain.MoveEntry
	Descending bool
	Error      string
}

func newBoardData(gs app.GameState, errMsg string) boardData {
	h := gs.History
	status := h.Status()
	board := h.CurrentBoard()
	data := boardData{
		ID:         gs.ID,
		Status:     status.Text(),
		Moves:      h.Moves(gs.Descending),
		Descending: gs.Descending,
		Error:      errMsg,
	}
	for i, c := range board {
		data.Rows[i/3][i%3] = cellView{Index: i, Symbol: c.String(), Highlight: status.Outcome.Contains(i)}
	}
	return data
}

const gameCookie = "game_id"

// rememberGame points the browser's game_id cookie at id.
func rememberGame(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{Name: gameCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// rememberedGame returns the game_id cookie value, if any.
func rememberedGame(r *http.Request) string {
	if c, err := r.Cookie(gameCookie); err == nil {
		return c.Value
	}
	return ""
}
