package xedit

import (
	"fmt"
	"sort"
	"strings"
)

// Game binds a short game-mode code to its dedicated editor executable name.
// A generic xEdit.exe needs the -{code} flag to behave as the dedicated
// editor; a dedicated executable already implies it.
type Game struct {
	Code       string
	EditorStem string
}

var games = map[string]Game{
	"tes4":      {Code: "tes4", EditorStem: "TES4Edit"},
	"fo3":       {Code: "fo3", EditorStem: "FO3Edit"},
	"fnv":       {Code: "fnv", EditorStem: "FNVEdit"},
	"tes5":      {Code: "tes5", EditorStem: "TES5Edit"},
	"enderal":   {Code: "enderal", EditorStem: "EnderalEdit"},
	"sse":       {Code: "sse", EditorStem: "SSEEdit"},
	"enderalse": {Code: "enderalse", EditorStem: "EnderalSEEdit"},
	"tes5vr":    {Code: "tes5vr", EditorStem: "TES5VREdit"},
	"fo4":       {Code: "fo4", EditorStem: "FO4Edit"},
	"fo4vr":     {Code: "fo4vr", EditorStem: "FO4VREdit"},
}

// GameByCode resolves a short game code, case-insensitively.
func GameByCode(code string) (Game, error) {
	g, ok := games[strings.ToLower(code)]
	if !ok {
		return Game{}, fmt.Errorf("unknown game code %q (known: %s)", code, strings.Join(GameCodes(), ", "))
	}
	return g, nil
}

// GameCodes lists the known game codes, sorted.
func GameCodes() []string {
	codes := make([]string, 0, len(games))
	for code := range games {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
