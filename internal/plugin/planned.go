package plugin

import "context"

type plannedKey struct{}

// WithPlanned attaches the set of resources that earlier steps of a dry run
// would have created. Evaluate treats them as present.
func WithPlanned(ctx context.Context, planned func(resource string) bool) context.Context {
	return context.WithValue(ctx, plannedKey{}, planned)
}

// PlannedFrom returns the lookup stored by WithPlanned, or nil.
func PlannedFrom(ctx context.Context) func(resource string) bool {
	planned, _ := ctx.Value(plannedKey{}).(func(string) bool)
	return planned
}
