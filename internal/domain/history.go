package domain

import (
	"errors"
	"fmt"
)

// Errors returned by history operations.
var (
	ErrInvalidMove = errors.New("invalid move")
	ErrOutOfBounds = fmt.Errorf("%w: out of bounds", ErrInvalidMove)
	ErrOccupied    = fmt.Errorf("%w: cell occupied", ErrInvalidMove)
	ErrGameOver    = fmt.Errorf("%w: game over", ErrInvalidMove)
	ErrOutOfRange  = errors.New("move out of range")
)

// Snapshot is one board state and the cell played to reach it.
// LastMove is -1 for the initial empty board.
type Snapshot struct {
	Board    Board
	LastMove int
}

// Row returns the row of the last move, or -1 for the initial snapshot.
func (s Snapshot) Row() int {
	if s.LastMove < 0 {
		return -1
	}
	return s.LastMove / 3
}

// Col returns the column of the last move, or -1 for the initial snapshot.
func (s Snapshot) Col() int {
	if s.LastMove < 0 {
		return -1
	}
	return s.LastMove % 3
}

// History holds every board state of a game and the one being viewed.
// It is not safe for concurrent use.
type History struct {
	snapshots []Snapshot
	current   int
}

// NewHistory returns a history holding only the empty board.
func NewHistory() *History {
	h := &History{}
	h.Reset()
	return h
}

// Reset discards all moves.
func (h *History) Reset() {
	h.snapshots = []Snapshot{{LastMove: -1}}
	h.current = 0
}

// Len returns the number of snapshots, including the initial one.
func (h *History) Len() int { return len(h.snapshots) }

// CurrentMove returns the index of the snapshot being viewed.
func (h *History) CurrentMove() int { return h.current }

// CurrentBoard returns the board at the current move.
func (h *History) CurrentBoard() Board { return h.snapshots[h.current].Board }

// Snapshot returns the snapshot at move.
func (h *History) Snapshot(move int) (Snapshot, error) {
	if move < 0 || move >= len(h.snapshots) {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrOutOfRange, move)
	}
	return h.snapshots[move], nil
}

// Snapshots returns a copy of the full history.
func (h *History) Snapshots() []Snapshot {
	return append([]Snapshot(nil), h.snapshots...)
}

// Clone returns an independent copy of h.
func (h *History) Clone() *History {
	return &History{snapshots: h.Snapshots(), current: h.current}
}

// NextPlayer returns the side to move from the current snapshot.
// X moves on even indices.
func (h *History) NextPlayer() Cell {
	if h.current%2 == 0 {
		return X
	}
	return O
}

// CurrentOutcome scans the board at the current move.
func (h *History) CurrentOutcome() Outcome {
	return Detect(h.CurrentBoard())
}

// Play marks cell for the side to move. Playing while viewing an earlier
// move drops every later snapshot before appending.
func (h *History) Play(cell int) error {
	if cell < 0 || cell >= len(Board{}) {
		return ErrOutOfBounds
	}
	if h.CurrentOutcome().Decided() {
		return ErrGameOver
	}
	board := h.CurrentBoard()
	if board[cell] != Empty {
		return ErrOccupied
	}
	board[cell] = h.NextPlayer()

	h.snapshots = append(h.snapshots[:h.current+1:h.current+1], Snapshot{Board: board, LastMove: cell})
	h.current = len(h.snapshots) - 1
	return nil
}

// JumpTo makes move the current snapshot. The history itself is untouched.
func (h *History) JumpTo(move int) error {
	if move < 0 || move >= len(h.snapshots) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, move)
	}
	h.current = move
	return nil
}

// MoveDescription labels move for the history list.
func (h *History) MoveDescription(move int) (string, error) {
	s, err := h.Snapshot(move)
	if err != nil {
		return "", err
	}
	if move == 0 {
		return "Go to game start", nil
	}
	if move == h.current {
		return fmt.Sprintf("You are at move #%d (%d, %d)", move, s.Row(), s.Col()), nil
	}
	return fmt.Sprintf("Go to move #%d (%d, %d)", move, s.Row(), s.Col()), nil
}

// MoveEntry is one line of the rendered history list.
type MoveEntry struct {
	Move        int    `json:"move"`
	Description string `json:"description"`
	Current     bool   `json:"current"`
}

// Moves lists the history in ascending move order, or descending when asked.
func (h *History) Moves(descending bool) []MoveEntry {
	out := make([]MoveEntry, 0, len(h.snapshots))
	for i := range h.snapshots {
		desc, _ := h.MoveDescription(i)
		out = append(out, MoveEntry{Move: i, Description: desc, Current: i == h.current})
	}
	if descending {
		for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
			out[l], out[r] = out[r], out[l]
		}
	}
	return out
}

// Status is what the view needs to print above the board.
type Status struct {
	Outcome Outcome
	Next    Cell
}

// Text renders the status line.
func (s Status) Text() string {
	switch s.Outcome.Kind {
	case Draw:
		return "Draw"
	case Win:
		return "Winner: " + s.Outcome.Player.String()
	default:
		return "Next player: " + s.Next.String()
	}
}

// Status derives the current status; nothing is cached.
func (h *History) Status() Status {
	return Status{Outcome: h.CurrentOutcome(), Next: h.NextPlayer()}
}
