// Package srcbridge lets a Go plugin module live inside a host engine that
// talks to it through foreign objects: records whose first word points at a
// table of function slots, laid out so that a derived record can be used
// wherever its base is expected.
//
// The engine side of the bridge is emulated in Go, so the whole object
// protocol runs for real: records are allocated in a wazero linear memory,
// every call goes through a table slot, and both sides only see each other
// through addresses.
//
// # Architecture Overview
//
//	srcbridge/           Root package with the Memory and Allocator interfaces
//	├── memory/          Foreign address space, allocator and C strings
//	├── abi/             Tables, layouts, objects and calling conventions
//	├── foreign/         Shared record declarations, flags and wire types
//	├── console/         Plugin side: variables, commands and their lifecycle
//	├── engine/          Emulated engine registry and console line execution
//	├── errors/          Structured error types for debugging
//	└── cmd/cvarsh/      Interactive console over an emulated engine
//
// # Quick Start
//
// Declare records, then load them against the engine's registry:
//
//	volume := console.NewVariable("volume", "0.5", foreign.FlagArchive,
//	    console.WithBounds(0, 1))
//	console.Declare(volume)
//
//	if err := console.Load(ctx, env, factory); err != nil {
//	    log.Fatal(err)
//	}
//	defer console.Unload(ctx)
//
//	volume.SetText(ctx, "2.5")
//	fmt.Println(volume.Text()) // "1.0"
//
// # Threads
//
// Registration runs on the main thread. Variables flagged for the material
// system are only set from the material thread while the engine runs it
// queued; sets from elsewhere are handed to the engine and replayed later.
// The calling thread travels on the context, see foreign.WithThread.
//
// # Debugging
//
// Build with the cvardebug tag to turn registration misuse (double
// registration, registration off the main thread) into panics.
package srcbridge
