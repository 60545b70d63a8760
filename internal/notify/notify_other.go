//go:build !darwin

package notify

// Send is a no-op on non-darwin platforms
func Send(title, message string) error {
	return nil
}

// SendRunSuccess is a no-op on non-darwin platforms
func SendRunSuccess(ruleCount int) error {
	return nil
}

// SendRunFailure is a no-op on non-darwin platforms
func SendRunFailure(ruleCount int) error {
	return nil
}
