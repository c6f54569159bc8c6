package agent

// ExecuteRequest is the body of POST /execute and POST /execute-async.
type ExecuteRequest struct {
	// Command is raw shell command text. It is trimmed before use and passed
	// to the platform shell verbatim.
	Command string `json:"command"`

	// Timeout is accepted for wire compatibility but advisory only: neither
	// execution path enforces it.
	Timeout int `json:"timeout"`
}

// ExecuteResponse is the result of a synchronous execution. On success the
// output fields are populated and Error is empty; on failure only Error is
// populated. A command that ran and exited nonzero is still a success: the
// agent executed it. ReturnCode is absent when the process was terminated by
// a signal.
type ExecuteResponse struct {
	Success bool   `json:"success"`
	Command string `json:"command"`

	Stdout     *string `json:"stdout,omitempty"`
	Stderr     *string `json:"stderr,omitempty"`
	ReturnCode *int    `json:"return_code,omitempty"`
	Executed   *bool   `json:"executed,omitempty"`

	Error string `json:"error,omitempty"`
}

// AsyncExecuteResponse is the result of a fire-and-forget execution. On
// failure PID is 0 and StartedAt and Status are empty.
type AsyncExecuteResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Command string  `json:"command"`

	PID       uint   `json:"pid"`
	StartedAt string `json:"started_at"`
	Status    string `json:"status"`

	Error string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Platform string `json:"platform"`
}

// HomeResponse is the body of GET /, an index of the agent's endpoints.
type HomeResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}
