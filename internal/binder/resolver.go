package binder

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mediakit/eventrouter/internal/bus"
)

// resolution is the normalized form of a raw event name: the canonical name,
// the stage it runs in, and the target it is routed to. LegacyPrefix records
// a stripped compatibility prefix for the caller's one-time advisory.
type resolution struct {
	Name         string
	Stage        bus.Stage
	Target       Target
	LegacyPrefix string
}

// resolve normalizes raw against the legacy-prefix rules, the stage-prefix
// convention and the membership tables. A caller-supplied stage or target
// overrides inference. Pure and deterministic.
func resolve(raw string, stage bus.Stage, target Target) resolution {
	name := raw
	var (
		legacyPrefix string
		legacyTarget Target
	)

	// Legacy compatibility names.
	switch {
	case strings.HasPrefix(name, "c_"):
		legacyPrefix = "c_"
		legacyTarget = TargetContainer
		name = name[len("c_"):]
	case strings.HasPrefix(name, "w_"):
		legacyPrefix = "w_"
		legacyTarget = TargetWrapper
		name = name[len("w_"):]
	case name == "error":
		legacyTarget = TargetKernel
	}

	// Stage prefixes.
	name, inferredStage := splitStage(name)

	if stage == "" {
		stage = inferredStage
	}

	if target == "" {
		target = legacyTarget
	}
	if target == "" {
		target = inferTarget(name)
	}

	return resolution{
		Name:         name,
		Stage:        stage,
		Target:       target,
		LegacyPrefix: legacyPrefix,
	}
}

// splitStage strips a reserved stage prefix and returns the canonical name
// and the stage it implied. Names without a reserved prefix run in the main
// stage.
func splitStage(name string) (string, bus.Stage) {
	switch {
	case hasCamelPrefix(name, "before"):
		return lowerFirst(name[len("before"):]), bus.StageBefore
	case hasCamelPrefix(name, "after"):
		return lowerFirst(name[len("after"):]), bus.StageAfter
	case strings.HasPrefix(name, "_") && len(name) > 1:
		return name[1:], bus.StageInternal
	default:
		return name, bus.StageMain
	}
}

// isSecondaryName reports whether name carries a reserved stage prefix.
// Such names are rejected on emission paths; callers emit the canonical name
// and select the stage explicitly.
func isSecondaryName(name string) bool {
	_, stage := splitStage(name)
	return stage != bus.StageMain
}

// hasCamelPrefix reports whether name starts with prefix followed by an
// upper-case rune, e.g. "beforePlay" but not "beforehand".
func hasCamelPrefix(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
