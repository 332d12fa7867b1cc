package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/meetly/internal/domain"
)

func TestSeatLabel(t *testing.T) {
	cases := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{0, 4, "A5"},
		{25, 9, "Z10"},
		{26, 0, "AA1"},
		{27, 1, "AB2"},
		{701, 0, "ZZ1"},
		{702, 0, "AAA1"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SeatLabel(tc.row, tc.col), "row %d col %d", tc.row, tc.col)
	}
}

func TestParseSeatID(t *testing.T) {
	row, col, err := ParseSeatID("3-12")
	require.NoError(t, err)
	assert.Equal(t, 3, row)
	assert.Equal(t, 12, col)

	for _, bad := range []string{"", "A5", "1", "1-", "-1-2", "x-1", "1-y"} {
		_, _, err := ParseSeatID(bad)
		assert.ErrorIs(t, err, ErrInvalidSeatID, bad)
	}
}

func TestWorkflow_AddVIPSeat(t *testing.T) {
	w := NewWorkflow(Options{})

	sel, err := w.AddSeat(Candidate{Row: 0, Column: 4, Type: "VIP", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	assert.Equal(t, "A5", sel.Seat)
	assert.True(t, sel.Price.Equal(decimal.NewFromInt(12)), "got %s", sel.Price)
	assert.True(t, w.TotalPrice().Equal(decimal.NewFromInt(12)))
}

func TestWorkflow_RemoveSeatEmptiesSelection(t *testing.T) {
	w := NewWorkflow(Options{})

	_, err := w.AddSeat(Candidate{Row: 0, Column: 4, Type: "VIP", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	n, err := w.RemoveSeat("0-4")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, w.Seats())
	assert.True(t, w.TotalPrice().IsZero())

	n, err = w.RemoveSeat("0-4")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkflow_StandardSeatIsNotSurcharged(t *testing.T) {
	w := NewWorkflow(Options{})

	sel, err := w.AddSeat(Candidate{Row: 1, Column: 0, Type: "standard", Price: decimal.RequireFromString("7.50")})
	require.NoError(t, err)
	assert.Equal(t, "B1", sel.Seat)
	assert.True(t, sel.Price.Equal(decimal.RequireFromString("7.5")))

	sel, err = w.AddSeat(Candidate{Row: 1, Column: 1, Type: "vip", Price: decimal.RequireFromString("7.50")})
	require.NoError(t, err)
	assert.True(t, sel.Price.Equal(decimal.RequireFromString("9")))
}

func TestWorkflow_DuplicatePolicy(t *testing.T) {
	c := Candidate{Row: 2, Column: 3, Type: "standard", Price: decimal.NewFromInt(5)}

	strict := NewWorkflow(Options{})
	_, err := strict.AddSeat(c)
	require.NoError(t, err)
	_, err = strict.AddSeat(c)
	assert.ErrorIs(t, err, ErrSeatAlreadySelected)
	assert.Len(t, strict.Seats(), 1)

	lax := NewWorkflow(Options{Duplicates: AllowDuplicates})
	_, _ = lax.AddSeat(c)
	_, err = lax.AddSeat(c)
	require.NoError(t, err)
	assert.Len(t, lax.Seats(), 2)

	n, err := lax.RemoveSeat(SeatID(2, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, lax.Seats())
}

func TestWorkflow_RejectsNegativeSeat(t *testing.T) {
	w := NewWorkflow(Options{})
	_, err := w.AddSeat(Candidate{Row: -1, Column: 0})
	assert.ErrorIs(t, err, ErrInvalidSeat)
}

func TestWorkflow_RejectsOutOfRangeSeatsAndNegativePrices(t *testing.T) {
	w := NewWorkflow(Options{})

	tests := []struct {
		name string
		c    Candidate
		err  error
	}{
		{name: "row overflow", c: Candidate{Row: math.MaxInt, Column: 0}, err: ErrInvalidSeat},
		{name: "column overflow", c: Candidate{Row: 0, Column: MaxColumn + 1}, err: ErrInvalidSeat},
		{name: "negative price", c: Candidate{Row: 0, Column: 0, Price: decimal.NewFromInt(-5)}, err: ErrNegativePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.AddSeat(tt.c)
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, ErrInvalidSeat)
		})
	}

	assert.Empty(t, w.Seats())
	assert.True(t, w.TotalPrice().IsZero())

	assert.Empty(t, RowLetters(math.MaxInt))
	assert.Equal(t, "ALL", RowLetters(999))

	_, _, err := ParseSeatID(fmt.Sprintf("%d-0", math.MaxInt))
	assert.ErrorIs(t, err, ErrInvalidSeatID)
}

func TestWorkflow_TotalMatchesRemainingSeats(t *testing.T) {
	type seat struct {
		row, col int
		price    decimal.Decimal
	}

	rng := rand.New(rand.NewSource(7))
	types := []string{"standard", "VIP", "vip", "balcony"}
	surcharge := decimal.RequireFromString("1.2")

	for round := 0; round < 50; round++ {
		w := NewWorkflow(Options{Duplicates: AllowDuplicates})
		var model []seat

		for op := 0; op < 40; op++ {
			row, col := rng.Intn(4), rng.Intn(4)

			if rng.Intn(3) == 0 {
				_, err := w.RemoveSeat(SeatID(row, col))
				require.NoError(t, err)

				var kept []seat
				for _, s := range model {
					if s.row != row || s.col != col {
						kept = append(kept, s)
					}
				}
				model = kept
				continue
			}

			typ := types[rng.Intn(len(types))]
			price := decimal.NewFromInt(int64(rng.Intn(50) + 1))
			_, err := w.AddSeat(Candidate{Row: row, Column: col, Type: typ, Price: price})
			require.NoError(t, err)

			if typ == "VIP" || typ == "vip" {
				price = price.Mul(surcharge)
			}
			model = append(model, seat{row: row, col: col, price: price})
		}

		want := decimal.Zero
		for _, s := range model {
			want = want.Add(s.price)
		}
		assert.True(t, want.Equal(w.TotalPrice()), "round %d: want %s got %s", round, want, w.TotalPrice())

		seats := w.Seats()
		require.Len(t, seats, len(model))
		for i, s := range model {
			assert.Equal(t, s.row, seats[i].Row)
			assert.Equal(t, s.col, seats[i].Column)
		}
	}
}

func TestWorkflow_ClearResetsDraft(t *testing.T) {
	w := NewWorkflow(Options{})
	w.SetEvent("e1")
	w.SetContact(Contact{FullName: "Ada", Email: "ada@example.com"})
	w.SetPayment("card")
	_, _ = w.AddSeat(Candidate{Row: 0, Column: 0, Price: decimal.NewFromInt(1)})

	w.Clear()

	d := w.Snapshot()
	assert.Empty(t, d.EventID)
	assert.Equal(t, Contact{}, d.Contact)
	assert.Empty(t, d.PaymentMethod)
	assert.Empty(t, d.Seats)
	assert.True(t, d.TotalPrice.IsZero())
}

func TestWorkflow_ReadyForCheckoutNeedsSeats(t *testing.T) {
	w := NewWorkflow(Options{})
	w.SetEvent("e1")
	w.SetContact(Contact{FullName: "Ada", Email: "ada@example.com"})

	err := w.ReadyForCheckout()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationBlocked)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "selected_seats", verr.Field)

	_, _ = w.AddSeat(Candidate{Row: 0, Column: 0, Price: decimal.NewFromInt(1)})
	assert.NoError(t, w.ReadyForCheckout())
}

type fakeSubmitter struct {
	got Draft
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, d Draft) (domain.Booking, error) {
	f.got = d
	if f.err != nil {
		return domain.Booking{}, f.err
	}
	return domain.Booking{ID: "b1", Seats: d.Seats, TotalPrice: d.TotalPrice}, nil
}

func readyWorkflow(t *testing.T) *Workflow {
	t.Helper()

	w := NewWorkflow(Options{})
	w.SetEvent("e1")
	w.SetContact(Contact{FullName: "Ada", Email: "ada@example.com"})
	_, err := w.AddSeat(Candidate{Row: 0, Column: 4, Type: "VIP", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	return w
}

func TestWorkflow_SubmitClearsOnSuccess(t *testing.T) {
	w := readyWorkflow(t)
	sub := &fakeSubmitter{}

	b, err := w.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.True(t, sub.got.TotalPrice.Equal(decimal.NewFromInt(12)))
	assert.Empty(t, w.Seats())
}

func TestWorkflow_SubmitKeepsDraftOnFailure(t *testing.T) {
	w := readyWorkflow(t)
	sub := &fakeSubmitter{err: &domain.RemoteError{Op: "create", Err: errors.New("down")}}

	_, err := w.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, domain.ErrRemoteFailure)
	assert.Len(t, w.Seats(), 1)
}

func TestWorkflow_SubmitBlockedWithoutSeats(t *testing.T) {
	w := NewWorkflow(Options{})
	sub := &fakeSubmitter{}

	_, err := w.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, domain.ErrValidationBlocked)
	assert.Equal(t, Draft{}, sub.got)
}
