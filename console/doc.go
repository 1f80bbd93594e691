// Package console is the plugin side of the engine console: variables and
// commands declared in Go, materialized into the engine's address space as
// ConVar and ConCommand objects, and registered with the engine registry.
//
// # Lifecycle
//
// Records are declared up front with Declare, the way static constructors
// chain them in a native plugin. Load resolves the registry through the
// host factory, installs the record tables and registers every declared
// record under a fresh owner id. Unload removes everything registered
// under that id and releases the foreign memory.
//
//	volume := console.NewVariable("volume", "0.5", foreign.FlagArchive,
//		console.WithBounds(0, 1),
//		console.WithHelp("master volume"))
//	console.Declare(volume)
//	if err := console.Load(ctx, env, factory); err != nil {
//		return err
//	}
//	defer console.Unload(ctx)
//
// # Values
//
// A variable keeps three representations: text, float and integer. Every
// set goes through one protocol: material thread gate, ownership gate,
// clamping, then a write of all three under the variable's mutex. Change
// hooks run after the mutex is released and only when the text changed.
//
// # Threads
//
// The host marks contexts with foreign.WithThread. Registration belongs to
// the main thread. Builds with the cvardebug tag panic on misuse; other
// builds do not check.
package console
