// Package memory provides the foreign address space used by srcbridge.
//
// A Space is a wazero linear memory (instantiated from a memory-only module)
// paired with a host-side first-fit allocator. Any other wazero memory can be
// adapted with Wrap.
//
//	space, err := memory.NewSpace(ctx, &memory.Config{InitialPages: 4})
//	if err != nil {
//	    return err
//	}
//	defer space.Close(ctx)
//
//	ptr, err := memory.NewCString(space, space, "sv_cheats")
//
// Address 0 is never handed out, so a zero pointer always means null.
package memory
