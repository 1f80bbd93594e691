// Package foreign holds the declarations both sides of the engine boundary
// agree on: record and registry dispatch tables, their byte layouts, the
// console flag bits, the bounded command invocation and completion list
// formats, and the logical host threads.
//
// Nothing here is verified against the engine at run time. The table slot
// order and the field order below are the contract.
package foreign
