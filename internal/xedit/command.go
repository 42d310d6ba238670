package xedit

import (
	"path/filepath"
	"strings"
)

// Invocation describes one launch of the cleaning tool against one plugin.
type Invocation struct {
	ExePath           string
	Game              Game
	Plugin            string
	AllowPartialForms bool
}

// IsGameSpecific reports whether the bound executable is already the game's
// dedicated editor, making the game-mode flag redundant.
func (inv Invocation) IsGameSpecific() bool {
	return strings.EqualFold(exeStem(inv.ExePath), inv.Game.EditorStem)
}

// Args builds the tool command line:
//
//	[-{game}] [-iknowwhatimdoing] -QAC [-allowmakepartial] -autoexit -autoload <plugin>
//
// The partial-forms flags bracket the -QAC token and appear only when the
// experimental option is enabled.
func (inv Invocation) Args() []string {
	args := make([]string, 0, 7)
	if !inv.IsGameSpecific() {
		args = append(args, "-"+inv.Game.Code)
	}
	if inv.AllowPartialForms {
		args = append(args, "-iknowwhatimdoing")
	}
	args = append(args, "-QAC")
	if inv.AllowPartialForms {
		args = append(args, "-allowmakepartial")
	}
	args = append(args, "-autoexit", "-autoload", inv.Plugin)
	return args
}

// logStem is the base name the tool derives its log files from: the
// executable's own name, or the dedicated editor name when the executable is
// generic.
func (inv Invocation) logStem() string {
	if inv.IsGameSpecific() {
		return exeStem(inv.ExePath)
	}
	return inv.Game.EditorStem
}

// PrimaryLogPath is the tool's result log, written beside the executable.
func (inv Invocation) PrimaryLogPath() string {
	return filepath.Join(filepath.Dir(inv.ExePath), inv.logStem()+"_log.txt")
}

// ExceptionLogPath is the tool's exception log, written beside the executable.
func (inv Invocation) ExceptionLogPath() string {
	return filepath.Join(filepath.Dir(inv.ExePath), inv.logStem()+"Exception.log")
}

func exeStem(exePath string) string {
	base := filepath.Base(exePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
