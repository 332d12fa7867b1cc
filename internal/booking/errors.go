package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSeatAlreadySelected = errors.New("seat already selected")
	ErrInvalidSeatID       = errors.New("invalid seat id")
	ErrInvalidSeat         = errors.New("seat is outside the seat map")
	ErrNegativePrice       = fmt.Errorf("%w: price must not be negative", ErrInvalidSeat)
	ErrWizardComplete      = errors.New("all steps are complete")
)
