// Package job compiles a raw command list and the selected operating mode
// into the immutable spec shared by every device worker in a run.
package job

import (
	"errors"
	"fmt"
	"strings"
)

// Mode tells the worker how to interpret the command list.
type Mode int

const (
	ModeYoink    Mode = iota + 1 // pull state, one command at a time
	ModeYeet                     // push the whole list as one config set
	ModeSaveOnly                 // no commands, just save the running config
)

func (m Mode) String() string {
	switch m {
	case ModeYoink:
		return "yoink"
	case ModeYeet:
		return "yeet"
	case ModeSaveOnly:
		return "save-only"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

var (
	ErrModeConflict = errors.New("job: exactly one of yoink, yeet or save-only must be selected")
	ErrNoCommands   = errors.New("job: command list is empty")
)

// Spec is the compiled job. Shared read-only across all workers, which is
// safe only because it is never mutated after Compile returns.
type Spec struct {
	Mode     Mode
	Commands []string
}

// SelectMode resolves the mutually exclusive mode flags.
func SelectMode(yoink, yeet, saveOnly bool) (Mode, error) {
	selected := 0
	var mode Mode
	if yoink {
		selected++
		mode = ModeYoink
	}
	if yeet {
		selected++
		mode = ModeYeet
	}
	if saveOnly {
		selected++
		mode = ModeSaveOnly
	}
	if selected != 1 {
		return 0, ErrModeConflict
	}
	return mode, nil
}

// Compile turns raw jobfile text into a Spec. One command per line, blank
// lines skipped, command text taken verbatim otherwise. Save-only ignores
// the text entirely; the other modes require at least one command.
func Compile(mode Mode, raw string) (Spec, error) {
	if mode == ModeSaveOnly {
		return Spec{Mode: ModeSaveOnly}, nil
	}
	var commands []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		commands = append(commands, line)
	}
	if len(commands) == 0 {
		return Spec{}, ErrNoCommands
	}
	return Spec{Mode: mode, Commands: commands}, nil
}
