// Package classify maps HTTP statuses from the Jules and GitHub APIs to
// the outcomes the loop acts on. The same rules apply to both APIs.
package classify

import "fmt"

// Outcome is the class of a completed call.
type Outcome int

const (
	// Success is any 2xx status.
	Success Outcome = iota
	// AuthFailure is 401 or 403. Only meaningful during startup validation.
	AuthFailure
	// Transient failures are retried with backoff.
	Transient
	// Fatal failures are never retried.
	Fatal
	// Conflict is a merge that cannot proceed because of an upstream
	// conflict. Fatal, but requires human intervention.
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AuthFailure:
		return "auth_failure"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// IsTransient reports whether status is worth retrying. Status 0 is the
// transport's network-failure sentinel.
func IsTransient(status int) bool {
	switch status {
	case 0, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// IsAuthError reports whether status indicates rejected credentials.
func IsAuthError(status int) bool {
	return status == 401 || status == 403
}

// IsConflict reports whether a merge status means the pull request cannot
// be merged as-is.
func IsConflict(status int) bool {
	return status == 405 || status == 409
}

// Status classifies a generic API status.
func Status(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return Success
	case IsAuthError(status):
		return AuthFailure
	case IsTransient(status):
		return Transient
	default:
		return Fatal
	}
}

// MergeStatus classifies the status of a merge call. Auth failures during
// the loop are plain fatal errors.
func MergeStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return Success
	case IsConflict(status):
		return Conflict
	case IsTransient(status):
		return Transient
	default:
		return Fatal
	}
}
