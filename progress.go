package optics

// ProgressReporter receives fractional progress updates and supplies a
// cooperative stop signal. The single-threaded drivers poll Stopped once per
// processed point; a true return unwinds the run, which then returns
// ErrCanceled. Multi-threaded stages report progress per completed stage and
// do not poll mid-stage.
//
// Worker failures in multi-threaded stages are reported through Log before
// the run returns an error.
type ProgressReporter interface {
	// Progress reports completion as a fraction in [0, 1].
	Progress(fraction float64)

	// Stopped reports whether the caller has requested cancellation.
	Stopped() bool

	// Log records a diagnostic message.
	Log(format string, args ...any)
}

// nullProgress is the default reporter: never stops, discards everything.
type nullProgress struct{}

func (nullProgress) Progress(float64) {}
func (nullProgress) Stopped() bool { return false }
func (nullProgress) Log(string, ...any) {}
