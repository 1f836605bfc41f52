package verify

import "strings"

// Class is the retry category of a verification failure message.
type Class int

const (
	ClassFatal Class = iota
	ClassRetryable
	ClassAlreadyVerified
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassAlreadyVerified:
		return "already_verified"
	default:
		return "fatal"
	}
}

// Explorer and transport messages that indicate a transient condition.
var retryableSignals = []string{
	"timeout",
	"timed out",
	"connect timeout",
	"network request failed",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"unexpected eof",
	"rate limit",
	"pending in queue",
}

// Classify maps a failure message to its retry class. Matching is
// case-insensitive; "already verified" wins over every other signal.
func Classify(msg string) Class {
	ls := strings.ToLower(strings.TrimSpace(msg))
	if strings.Contains(ls, "already verified") {
		return ClassAlreadyVerified
	}
	for _, s := range retryableSignals {
		if strings.Contains(ls, s) {
			return ClassRetryable
		}
	}
	return ClassFatal
}
