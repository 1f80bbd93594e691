package foreign

import "strings"

// Flags is the console record flag bitset.
type Flags int32

const (
	FlagNone                  Flags = 0
	FlagUnregistered          Flags = 1 << 0
	FlagDevelopmentOnly       Flags = 1 << 1
	FlagGameDLL               Flags = 1 << 2
	FlagClientDLL             Flags = 1 << 3
	FlagHidden                Flags = 1 << 4
	FlagProtected             Flags = 1 << 5
	FlagSPOnly                Flags = 1 << 6
	FlagArchive               Flags = 1 << 7
	FlagNotify                Flags = 1 << 8
	FlagUserInfo              Flags = 1 << 9
	FlagPrintableOnly         Flags = 1 << 10
	FlagUnlogged              Flags = 1 << 11
	FlagNeverAsString         Flags = 1 << 12
	FlagReplicated            Flags = 1 << 13
	FlagCheat                 Flags = 1 << 14
	FlagSS                    Flags = 1 << 15
	FlagDemo                  Flags = 1 << 16
	FlagDontRecord            Flags = 1 << 17
	FlagSSAdded               Flags = 1 << 18
	FlagRelease               Flags = 1 << 19
	FlagReloadMaterials       Flags = 1 << 20
	FlagReloadTextures        Flags = 1 << 21
	FlagNotConnected          Flags = 1 << 22
	FlagMaterialSystemThread  Flags = 1 << 23
	FlagArchiveXbox           Flags = 1 << 24
	FlagAccessibleFromThreads Flags = 1 << 25
	FlagServerCanExecute      Flags = 1 << 28
	FlagServerCannotQuery     Flags = 1 << 29
	FlagClientCmdCanExecute   Flags = 1 << 30

	// MaterialThreadMask marks variables whose sets must happen on the
	// material thread.
	MaterialThreadMask = FlagReloadMaterials | FlagReloadTextures | FlagMaterialSystemThread
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagUnregistered, "unregistered"},
	{FlagDevelopmentOnly, "developmentonly"},
	{FlagGameDLL, "game"},
	{FlagClientDLL, "client"},
	{FlagHidden, "hidden"},
	{FlagProtected, "protected"},
	{FlagSPOnly, "sp"},
	{FlagArchive, "archive"},
	{FlagNotify, "notify"},
	{FlagUserInfo, "user"},
	{FlagPrintableOnly, "printableonly"},
	{FlagUnlogged, "unlogged"},
	{FlagNeverAsString, "numeric"},
	{FlagReplicated, "replicated"},
	{FlagCheat, "cheat"},
	{FlagSS, "ss"},
	{FlagDemo, "demo"},
	{FlagDontRecord, "norecord"},
	{FlagSSAdded, "ss_added"},
	{FlagRelease, "release"},
	{FlagReloadMaterials, "reload_materials"},
	{FlagReloadTextures, "reload_textures"},
	{FlagNotConnected, "not_connected"},
	{FlagMaterialSystemThread, "matsys"},
	{FlagArchiveXbox, "archive_xbox"},
	{FlagAccessibleFromThreads, "threads"},
	{FlagServerCanExecute, "server_can_execute"},
	{FlagServerCannotQuery, "server_cannot_query"},
	{FlagClientCmdCanExecute, "clientcmd_can_execute"},
}

// Has reports whether any of bits is set.
func (f Flags) Has(bits Flags) bool {
	return f&bits != 0
}

// String renders the set flags as a "|"-separated list.
func (f Flags) String() string {
	if f == FlagNone {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}
