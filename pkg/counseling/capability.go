package counseling

// Capabilities toggles optional workflow segments. Disabling one removes the
// corresponding nodes from the compiled graph entirely rather than bypassing
// them at run time.
type Capabilities struct {
	// Profiler enables the profiling loop and portrait synthesis. Without
	// it the workflow moves straight from the initial scales to therapy.
	Profiler bool
	// Memory enables long-term skill retrieval and persistence. Without it
	// agents run on session-local context only.
	Memory bool
}

// FullCapabilities enables every optional segment.
func FullCapabilities() Capabilities {
	return Capabilities{Profiler: true, Memory: true}
}
