package binder

// Target names the logical destination an event is routed to. The set is
// closed and fixed at construction.
type Target string

const (
	// TargetKernel routes to the playback engine.
	TargetKernel Target = "kernel"
	// TargetContainer routes to the outer container node.
	TargetContainer Target = "container"
	// TargetWrapper routes to the wrapping layer node.
	TargetWrapper Target = "wrapper"
	// TargetVideo routes application-level events of the video surface.
	TargetVideo Target = "video"
	// TargetVideoDOM routes raw DOM events heard on the video surface and
	// mirrored onto overlay nodes.
	TargetVideoDOM Target = "video-dom"
	// TargetPlugin routes purely logical events; never bound natively.
	TargetPlugin Target = "plugin"
	// TargetFullscreen routes fullscreen transitions, handled elsewhere;
	// never bound natively here.
	TargetFullscreen Target = "esFullscreen"
)

// allTargets fixes iteration order for construction and teardown.
var allTargets = [...]Target{
	TargetKernel,
	TargetContainer,
	TargetWrapper,
	TargetVideo,
	TargetVideoDOM,
	TargetPlugin,
	TargetFullscreen,
}

// needsNativeBinding reports whether the target is ever attached to a
// physical source.
func needsNativeBinding(target Target) bool {
	return target != TargetPlugin && target != TargetFullscreen
}

type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// videoEvents are application-level surface notifications. They are
// re-emitted by the engine wrapper itself, so the binder never attaches a
// native listener for them on the video target.
var videoEvents = newNameSet(
	"durationchange",
	"loadedmetadata",
	"loadeddata",
	"canplay",
	"canplaythrough",
	"playing",
	"waiting",
	"seeking",
	"seeked",
	"ended",
	"timeupdate",
	"progress",
	"ratechange",
	"volumechange",
	"stalled",
	"suspend",
	"abort",
	"emptied",
)

// kernelEvents are playback-engine events and commands.
var kernelEvents = newNameSet(
	"play",
	"pause",
	"load",
	"seek",
	"restart",
	"startLoad",
	"stopLoad",
	"mediaInfo",
	"heartbeat",
	"bufferFull",
	"error",
)

// videoDOMEvents are raw DOM events heard on the video surface and on every
// overlay node.
var videoDOMEvents = newNameSet(
	"click",
	"dblclick",
	"contextmenu",
	"mousedown",
	"mouseup",
	"mousemove",
	"mouseenter",
	"mouseleave",
	"wheel",
	"touchstart",
	"touchmove",
	"touchend",
)

// fullscreenEvents are fullscreen transitions.
var fullscreenEvents = newNameSet(
	"fullscreenchange",
	"fullscreenerror",
)

// boundaryEvents are the raw names the containment tracker installs its own
// native callbacks for, to synthesize a single logical enter/leave across
// the overlay boundary.
var boundaryEvents = newNameSet(
	"mouseenter",
	"mouseleave",
)

// inferTarget resolves a name against the membership tables in fixed
// priority order; unknown names belong to plugins.
func inferTarget(name string) Target {
	switch {
	case videoEvents.has(name):
		return TargetVideo
	case kernelEvents.has(name):
		return TargetKernel
	case videoDOMEvents.has(name):
		return TargetVideoDOM
	case fullscreenEvents.has(name):
		return TargetFullscreen
	default:
		return TargetPlugin
	}
}
