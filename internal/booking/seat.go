package booking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/meetly/internal/domain"
)

const SeatTypeVIP = "vip"

// MaxRow and MaxColumn bound seat coordinates; no seat map comes close.
const (
	MaxRow    = 10_000
	MaxColumn = 10_000
)

var vipMultiplier = decimal.RequireFromString("1.2")

// Candidate is a seat picked on the seat map, before pricing.
type Candidate struct {
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
}

// RowLetters names a zero-based row: A..Z, then AA, AB and so on. Rows
// outside [0, MaxRow] have no name.
func RowLetters(row int) string {
	if row < 0 || row > MaxRow {
		return ""
	}

	var b []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// SeatLabel is the display label of a seat, e.g. row 0 column 4 is "A5".
func SeatLabel(row, column int) string {
	return RowLetters(row) + strconv.Itoa(column+1)
}

// SeatID encodes seat identity as "{row}-{column}".
func SeatID(row, column int) string {
	return fmt.Sprintf("%d-%d", row, column)
}

func ParseSeatID(id string) (row, column int, err error) {
	r, c, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}

	row, err = strconv.Atoi(r)
	if err != nil || row < 0 || row > MaxRow {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}

	column, err = strconv.Atoi(c)
	if err != nil || column < 0 || column > MaxColumn {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}

	return row, column, nil
}

// AdjustedPrice applies the VIP surcharge. The type comparison ignores case.
func AdjustedPrice(seatType string, price decimal.Decimal) decimal.Decimal {
	if strings.EqualFold(seatType, SeatTypeVIP) {
		return price.Mul(vipMultiplier)
	}
	return price
}

// Selection prices c and derives its label.
func Selection(c Candidate) (domain.SeatSelection, error) {
	if c.Row < 0 || c.Column < 0 || c.Row > MaxRow || c.Column > MaxColumn {
		return domain.SeatSelection{}, ErrInvalidSeat
	}
	if c.Price.IsNegative() {
		return domain.SeatSelection{}, ErrNegativePrice
	}

	return domain.SeatSelection{
		Row:    c.Row,
		Column: c.Column,
		Type:   c.Type,
		Price:  AdjustedPrice(c.Type, c.Price),
		Seat:   SeatLabel(c.Row, c.Column),
	}, nil
}
