// Package abi emulates a foreign polymorphic object model inside a
// srcbridge.Memory address space.
//
// # Dispatch tables
//
// A Table declares the ordered function slots of a foreign interface and the
// calling convention every slot uses. Installing a table writes an array of
// function indices into foreign memory; the indices resolve through the
// Env's FuncTable to Go functions:
//
//	base := abi.NewTable("ConCommandBase", abi.Native, "IsCommand", "GetName")
//	cmd := base.Extend("ConCommand", "Dispatch")
//
//	vt, err := cmd.Install(env, map[string]abi.Func{
//	    "IsCommand": isCommand,
//	    "GetName":   getName,
//	    "Dispatch":  dispatch,
//	})
//
// Slot order is a construction-time contract with the foreign declaration.
// Nothing checks it at run time.
//
// # Calling conventions
//
// ConvDefault passes the receiver as the first stack word. ConvThiscall
// passes it in a register word and only the arguments on the stack. Native
// is selected at build time: windows/386 uses thiscall, every other target
// uses the default convention.
//
// # Layout compatibility
//
// A Layout describes the data behind a table pointer. Derive and Wrap are the
// only ways to declare that one layout may be reinterpreted as another; the
// relation is never inferred from field shapes. Derived layouts keep their
// base's fields at identical offsets and require a table that extends the
// base's table, so both halves of the table+data pair satisfy the relation.
//
//	baseLayout := abi.NewLayout("ConCommandBase", base, abi.Ptr("next"), abi.Ptr("name"))
//	cmdLayout := baseLayout.Derive("ConCommand", cmd, abi.U32("callback"))
//
//	obj, err := abi.New(env, cmdLayout, vt)
//	asBase, ok := obj.As(baseLayout) // ok: declared edge, same address
//
// Only offset-0 inheritance is modeled.
package abi
