package bdispatch

// Outcome describes how a write ended.
type Outcome int

const (
	// OutcomeEmpty means the result was nil and only the response was ended.
	OutcomeEmpty Outcome = iota
	// OutcomeNative means the result was written through its own output mode.
	OutcomeNative
	// OutcomeFallback means text or the serializer produced the body.
	OutcomeFallback
	// OutcomeCustomError means a registered error handler took over.
	OutcomeCustomError
	// OutcomeRecovered means the write failed and an error response was written instead.
	OutcomeRecovered
	// OutcomeFailed means the write failed and no error response could be written.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeNative:
		return "native"
	case OutcomeFallback:
		return "fallback"
	case OutcomeCustomError:
		return "custom_error"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer gets informed about every finished write.
type Observer interface {
	ObserveWrite(outcome Outcome, variant Variant)
}

// ObserverFunc allow casting a function to an implementation of [Observer].
type ObserverFunc func(Outcome, Variant)

// ObserveWrite implements the [Observer] interface.
func (f ObserverFunc) ObserveWrite(o Outcome, v Variant) { f(o, v) }

type nopObserver struct{}

func (nopObserver) ObserveWrite(Outcome, Variant) {}
