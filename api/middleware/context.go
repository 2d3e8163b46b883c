package middleware

import "context"

// caller is the identity Auth stores on the request context.
type caller struct {
	userID string
	email  string
}

type callerKey struct{}

func callerFrom(ctx context.Context) caller {
	if ctx == nil {
		return caller{}
	}
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

func withCaller(ctx context.Context, c caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, c)
}

func UserIDFromContext(ctx context.Context) string {
	return callerFrom(ctx).userID
}

// EmailFromContext is empty for tokens minted without an email claim.
func EmailFromContext(ctx context.Context) string {
	return callerFrom(ctx).email
}

func WithUserID(ctx context.Context, userID string) context.Context {
	c := callerFrom(ctx)
	c.userID = userID
	return withCaller(ctx, c)
}

func WithEmail(ctx context.Context, email string) context.Context {
	c := callerFrom(ctx)
	c.email = email
	return withCaller(ctx, c)
}
