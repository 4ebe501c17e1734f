package domain

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// String returns "X", "O" or "" for an empty cell.
func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Full reports whether no cell is Empty.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// OutcomeKind classifies a board.
type OutcomeKind uint8

const (
	None OutcomeKind = iota
	Draw
	Win
)

// Outcome is the result of scanning a board. Player and Line are only
// meaningful when Kind is Win.
type Outcome struct {
	Kind   OutcomeKind
	Player Cell
	Line   [3]int
}

// Decided reports whether the game on the scanned board is over.
func (o Outcome) Decided() bool { return o.Kind != None }

// Contains reports whether cell i is part of the winning line.
func (o Outcome) Contains(i int) bool {
	if o.Kind != Win {
		return false
	}
	return o.Line[0] == i || o.Line[1] == i || o.Line[2] == i
}

// lines is scanned in order; the first complete line wins.
var lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Detect returns the outcome of b.
func Detect(b Board) Outcome {
	for _, ln := range lines {
		c := b[ln[0]]
		if c != Empty && b[ln[1]] == c && b[ln[2]] == c {
			return Outcome{Kind: Win, Player: c, Line: ln}
		}
	}
	if b.Full() {
		return Outcome{Kind: Draw}
	}
	return Outcome{Kind: None}
}
