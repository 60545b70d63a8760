//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

// Send sends a macOS notification using osascript
func Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Glass"`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// SendRunSuccess sends a notification for a fully successful rules run
func SendRunSuccess(ruleCount int) error {
	title := "✅ asana-rules: Run Completed"
	message := fmt.Sprintf("%d rule(s) applied", ruleCount)
	return Send(title, message)
}

// SendRunFailure sends a notification for a rules run with failures
func SendRunFailure(ruleCount int) error {
	title := "❌ asana-rules: Run Failed"
	message := fmt.Sprintf("failures among %d rule(s)", ruleCount)
	return Send(title, message)
}
