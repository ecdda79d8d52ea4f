package reqctx

import "context"

type ctxKey string

const (
	keyRID   ctxKey = "rid"
	keyActor ctxKey = "actor_uid"
)

// WithRID stores the request correlation id for log lines.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithActorUID stores the acting user's uid for log lines.
func WithActorUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyActor, uid)
}

// ActorUID returns the acting uid if present.
func ActorUID(ctx context.Context) string {
	v, _ := ctx.Value(keyActor).(string)
	return v
}
