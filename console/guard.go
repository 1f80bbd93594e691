package console

import (
	"context"

	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
)

// assertf panics with a misuse error when debug checks are built in and ok
// is false. Release builds do not check.
func assertf(ok bool, op, name, detail string) {
	if debugChecks && !ok {
		panic(errors.Misuse(errors.PhaseRegister, []string{op, name}, detail))
	}
}

func onMainThread(ctx context.Context) bool {
	return foreign.ThreadFrom(ctx) == foreign.ThreadMain
}
