package main

import (
	"fmt"
	"io"

	"caveat/internal/observ"
)

var stageVerbs = map[string]string{
	"load":   "loaded",
	"run":    "ran",
	"report": "reported",
}

func printStageTimings(out io.Writer, rep observ.Report) {
	if out == nil {
		return
	}
	for _, s := range rep.Stages {
		verb, ok := stageVerbs[s.Name]
		if !ok {
			verb = s.Name
		}
		line := fmt.Sprintf("%s %.1f ms", verb, s.DurationMS)
		if s.Note != "" {
			line += " (" + s.Note + ")"
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			panic(err)
		}
	}
}
