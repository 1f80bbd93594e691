package foreign

import "context"

// Thread names a well-known host thread. The host marks the context it
// calls in with; Go code never infers it.
type Thread uint8

const (
	ThreadMain Thread = iota
	ThreadMaterial
	ThreadWorker
)

func (t Thread) String() string {
	switch t {
	case ThreadMain:
		return "main"
	case ThreadMaterial:
		return "material"
	case ThreadWorker:
		return "worker"
	default:
		return "unknown"
	}
}

type threadKey struct{}

// WithThread marks ctx as running on t.
func WithThread(ctx context.Context, t Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// ThreadFrom returns the thread ctx was marked with, ThreadMain if unmarked.
func ThreadFrom(ctx context.Context) Thread {
	if t, ok := ctx.Value(threadKey{}).(Thread); ok {
		return t
	}
	return ThreadMain
}
