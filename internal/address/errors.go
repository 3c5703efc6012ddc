package address

// ValidationError reports a raw address string that matches neither the
// bare nor the named email grammar.
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return "Invalid email address: " + e.Input
}
