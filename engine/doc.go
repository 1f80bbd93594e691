// Package engine emulates the engine side of the console boundary: an
// ICvar registry living in foreign memory that plugins reach only through
// its dispatch table.
//
// # Architecture
//
// The registry object is laid out as foreign.CvarLayout and its table
// extends the IAppSystem table:
//
//	IAppSystem      Connect Disconnect QueryInterface Init Shutdown
//	ICvar           AllocateDLLIdentifier RegisterConCommand ...
//
// Records are never copied. The registry links the plugin's own
// ConCommandBase objects through their next field and talks to them through
// their tables, so a record's name, owner and values are whatever its
// module answers.
//
// # Duplicate variables
//
// Registering a variable under a name that is already taken does not link
// it. Its parent field is pointed at the existing root and its module then
// treats it as a read-through child. Unregistering the root promotes its
// children back to roots.
//
// # Material thread
//
// With Config.QueuedMaterialSystem set, variables flagged for the material
// thread may only be set from contexts marked foreign.ThreadMaterial. Sets
// from other threads are queued and replayed through each variable's own
// SetValue slots by ProcessQueuedMaterialThreadSets.
//
// # Console lines
//
// Execute runs console text: statements split on ';' and newlines, commands
// dispatch through their Dispatch slot with a CCommand in foreign memory,
// and variables print or set their value. Complete answers tab completion.
package engine
