//go:build cvardebug

package console

const debugChecks = true
