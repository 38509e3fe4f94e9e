package main

import (
	"fmt"
	"io"
	"strings"
)

// switchMode is the value of --color and --ui.
type switchMode uint8

const (
	modeAuto switchMode = iota
	modeOn
	modeOff
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on", "always":
		return modeOn, nil
	case "off", "never":
		return modeOff, nil
	}
	return modeAuto, usageError(fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value))
}

// enabled resolves auto against out: on only for a terminal.
func (m switchMode) enabled(out io.Writer) bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	}
	return isTerminal(out)
}
