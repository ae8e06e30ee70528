// Package exitcode defines named exit codes for the jules-loop CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and supervisors.
package exitcode

// Exit code constants.
const (
	Success     = 0   // Stopped cleanly or iteration limit reached
	Error       = 1   // Invalid config, credentials, state or source
	Paused      = 2   // Loop paused itself; clear with --resume
	Interrupted = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case Paused:
		return "Paused"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
