package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Cell は盤面上の1マスを表す値オブジェクト。(row, col) で指定する。
type Cell struct {
	Row int
	Col int
}

var ErrInvalidCell = errors.New("domain: invalid cell encoding")

// MarshalJSON はワイヤフォーマット [row, col] でエンコードする。
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON は [row, col] 形式からデコードする。
func (c *Cell) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCell, err)
	}
	c.Row = pair[0]
	c.Col = pair[1]
	return nil
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Bounds は盤面のセル数を表す。
type Bounds struct {
	Width  int `json:"w_cells"`
	Height int `json:"h_cells"`
}

// Contains は cell が 0 <= row < height, 0 <= col < width を満たすかを返す。
func (b Bounds) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < b.Height && c.Col >= 0 && c.Col < b.Width
}
