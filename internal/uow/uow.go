package uow

import (
	"context"
)

// AfterWrite is a function that runs after a remote write succeeded.
type AfterWrite func(ctx context.Context)

// UoW wraps one remote write together with the local follow-ups that must only
// happen once the write is confirmed.
type UoW struct{}

func New() *UoW {
	return &UoW{}
}

// Do runs fn. Hooks registered through after are executed in registration
// order once fn returns nil, and dropped otherwise.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, after func(AfterWrite)) error,
) error {
	var hooks []AfterWrite

	if err := fn(ctx, func(h AfterWrite) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
