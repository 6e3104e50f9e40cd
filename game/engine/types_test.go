package engine

import "testing"

func TestBoard_Valid(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  bool
	}{
		{"standard 4x4", Board{Rows: 4, Cols: 4}, true},
		{"rectangular 2x3", Board{Rows: 2, Cols: 3}, true},
		{"odd cell count", Board{Rows: 3, Cols: 3}, false},
		{"zero rows", Board{Rows: 0, Cols: 4}, false},
		{"negative cols", Board{Rows: 4, Cols: -2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.board.Valid(); got != tt.want {
				t.Errorf("Board{%d,%d}.Valid() = %v, want %v", tt.board.Rows, tt.board.Cols, got, tt.want)
			}
		})
	}
}

func TestBoard_Cells(t *testing.T) {
	if got := (Board{Rows: 4, Cols: 6}).Cells(); got != 24 {
		t.Errorf("Expected 24 cells, got %d", got)
	}
}

func TestError_Error(t *testing.T) {
	err := &Error{Code: CodeGameFull, Message: "This game is already full!"}
	if err.Error() != "This game is already full!" {
		t.Errorf("Unexpected error string: %q", err.Error())
	}
}
