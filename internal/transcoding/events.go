package transcoding

// EventKind discriminates session events.
type EventKind int

const (
	// EventOutput is an unclassified encoder stderr line, kept for debug
	// logging only. Producers drop these when the event buffer is full.
	EventOutput EventKind = iota
	// EventErrorMatched is a stderr line that matched the pattern table.
	EventErrorMatched
	// EventExited reports process exit. It is always the final event on a
	// session's channel: the stderr scanner drains before the exit watcher
	// fires, so no matched error can arrive after it.
	EventExited
)

// Event is one occurrence on a session's event channel. Each session has a
// single consumer loop, so handlers never race with each other.
type Event struct {
	Kind     EventKind
	Line     string
	Category ErrorCategory

	// ExitCode and Err are set on EventExited. A nil Err is a clean exit.
	ExitCode int
	Err      error
}
