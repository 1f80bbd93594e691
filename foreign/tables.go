package foreign

import "github.com/wippyai/srcbridge/abi"

// CvarInterfaceVersion is the factory name of the console registry.
const CvarInterfaceVersion = "VEngineCvar007"

const (
	MaxArgs             = 64
	MaxCommandLength    = 512
	MaxSuggestions      = 64
	MaxSuggestionLength = 64
)

// Record tables. Slot order is the engine's virtual order.
var (
	BaseTable = abi.NewTable("ConCommandBase", abi.Native,
		"IsCommand",
		"IsFlagSet",
		"AddFlags",
		"GetName",
		"GetHelpText",
		"IsRegistered",
		"GetDLLIdentifier",
		"Init",
	)

	CommandTable = BaseTable.Extend("ConCommand",
		"AutoCompleteSuggest",
		"CanAutoComplete",
		"Dispatch",
	)

	VariableTable = BaseTable.Extend("ConVar",
		"SetValueString",
		"SetValueFloat",
		"SetValueInt",
		"GetFloat",
		"GetInt",
		"ClampValue",
	)
)

// Record layouts.
var (
	BaseLayout = abi.NewLayout("ConCommandBase", BaseTable,
		abi.Ptr("next"),
		abi.Bool("registered"),
		abi.Ptr("name"),
		abi.Ptr("help"),
		abi.I32("flags"),
	)

	// The raw callback pointers stay null. Callbacks are reached through
	// Dispatch and AutoCompleteSuggest; only the kinds are meaningful.
	CommandLayout = BaseLayout.Derive("ConCommand", CommandTable,
		abi.U32("callback"),
		abi.U32("completion"),
		abi.U8("callbackKind"),
		abi.U8("completionKind"),
	)

	VariableLayout = BaseLayout.Derive("ConVar", VariableTable,
		abi.Ptr("parent"),
		abi.Ptr("default"),
		abi.Ptr("string"),
		abi.I32("stringLength"),
		abi.F32("float"),
		abi.I32("int"),
		abi.Bool("hasMin"),
		abi.F32("min"),
		abi.Bool("hasMax"),
		abi.F32("max"),
		abi.Bool("hasCompMin"),
		abi.F32("compMin"),
		abi.Bool("hasCompMax"),
		abi.F32("compMax"),
		abi.Bool("competitive"),
		abi.U32("changeCallback"),
	)

	InvocationLayout = abi.NewLayout("CCommand", nil,
		abi.I32("argc"),
		abi.I32("argv0Size"),
		abi.Bytes("argS", MaxCommandLength),
		abi.Bytes("argvBuffer", MaxCommandLength),
		abi.Words("argv", MaxArgs),
	)

	SuggestionsLayout = abi.NewLayout("CompletionList", nil,
		abi.I32("count"),
		abi.Bytes("items", MaxSuggestions*MaxSuggestionLength),
	)
)

// Registry tables and layouts.
var (
	AppSystemTable = abi.NewTable("IAppSystem", abi.Native,
		"Connect",
		"Disconnect",
		"QueryInterface",
		"Init",
		"Shutdown",
	)

	CvarTable = AppSystemTable.Extend("ICvar",
		"AllocateDLLIdentifier",
		"RegisterConCommand",
		"UnregisterConCommand",
		"UnregisterConCommands",
		"FindCommandBase",
		"FindVar",
		"FindCommand",
		"CallGlobalChangeCallbacks",
		"IsMaterialThreadSetAllowed",
		"QueueMaterialThreadSetValueString",
		"QueueMaterialThreadSetValueFloat",
		"QueueMaterialThreadSetValueInt",
		"HasQueuedMaterialThreadConVarSets",
		"ProcessQueuedMaterialThreadConVarSets",
	)

	AppSystemLayout = abi.NewLayout("IAppSystem", AppSystemTable)
	CvarLayout      = AppSystemLayout.Derive("ICvar", CvarTable)
)

// Factory resolves an interface by version name, the way the engine's
// CreateInterface export does.
type Factory func(name string) (abi.Object, bool)
