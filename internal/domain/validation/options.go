package validation

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithKickoutWindow sets how far back (events and seconds) a kickout looks
// for the score or wide that should precede it.
func WithKickoutWindow(events int, seconds float64) Option {
	return func(v *Validator) {
		if events > 0 {
			v.kickoutLookback = events
		}
		if seconds > 0 {
			v.kickoutWindow = seconds
		}
	}
}
