//go:build !(windows && 386)

package abi

// Native is the convention the foreign engine uses on this target.
const Native = ConvDefault
