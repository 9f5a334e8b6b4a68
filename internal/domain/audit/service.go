package audit

import "context"

// Recorder is the write side used by admin operations. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type AuditService interface {
	Recorder
	List(ctx context.Context, filter AuditFilter) (ListAuditResponse, error)
}

type actorKey struct{}

// Actor identifies who performed an administrative mutation.
type Actor struct {
	ID   string
	Name string
}

// WithActor attaches the acting user to ctx so services can attribute audit entries.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting user, or a "system" actor for background jobs.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.ID != "" {
		return a
	}
	return Actor{ID: "system", Name: "system"}
}
