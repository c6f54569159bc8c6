package stream

// execRequestMessage is the single request message of the protocol, sent by
// the client immediately after the connection is established.
type execRequestMessage struct {
	// Command is the raw shell command text. It is validated and trimmed
	// server-side like the non-streaming endpoints.
	Command string
}

// execResponseMessage is a server->client message. The first message has
// Started=true and carries the PID, the last has Exited=true and carries the
// exit information; messages between them carry stdout or stderr bytes.
type execResponseMessage struct {
	Started bool
	PID     int

	Stdout []byte
	Stderr []byte

	// Exited is true once the process exited. ExitCode and TimeMS are only
	// meaningful in that case. ExitCode is -1 when the process was killed by
	// a signal, including the kill issued when the connection drops.
	Exited   bool
	ExitCode int
	TimeMS   int64

	// Err is a terminal validation or spawn failure. No further messages
	// follow a message with a non-empty Err.
	Err string
}
