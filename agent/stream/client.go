package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Client runs shell commands on a remote agent over the streamed-execution
// WebSocket endpoint.
type Client struct {
	HTTPClient *http.Client
	URL        string
	Logger     *zap.SugaredLogger
}

// Result is the terminal state of a streamed execution.
type Result struct {
	PID      int
	ExitCode int
	TimeMS   int64
}

// ErrRemote wraps a terminal failure reported by the server, i.e. the command
// was rejected or could not be spawned.
type ErrRemote struct {
	Message string
}

func (e *ErrRemote) Error() string {
	return e.Message
}

// Run executes the command on the remote agent, copying output chunks into
// stdout and stderr as they arrive (either may be nil to discard). It blocks
// until the process exits or ctx is done; cancelling ctx drops the
// connection, which kills the remote process.
func (c *Client) Run(ctx context.Context, command string, stdout, stderr io.Writer) (*Result, error) {
	c.Logger.Debugw("dialing WebSocket for streamed execution", "URL", c.URL)
	wsConn, _, err := websocket.Dial(ctx, c.URL, &websocket.DialOptions{
		HTTPClient:      c.HTTPClient,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("establishing WebSocket conn: %w", err)
	}
	wsConn.SetReadLimit(readLimit)
	defer wsConn.Close(websocket.StatusNormalClosure, "")

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	err = wsjson.Write(ctx, wsConn, execRequestMessage{Command: command})
	if err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}

	res := &Result{}
	for {
		var msg execResponseMessage
		err := wsjson.Read(ctx, wsConn, &msg)
		if err != nil {
			return nil, fmt.Errorf("reading response message: %w", err)
		}
		if msg.Err != "" {
			return nil, &ErrRemote{Message: msg.Err}
		}
		if msg.Started {
			res.PID = msg.PID
		}
		if len(msg.Stdout) > 0 {
			if _, err := stdout.Write(msg.Stdout); err != nil {
				return nil, fmt.Errorf("writing stdout: %w", err)
			}
		}
		if len(msg.Stderr) > 0 {
			if _, err := stderr.Write(msg.Stderr); err != nil {
				return nil, fmt.Errorf("writing stderr: %w", err)
			}
		}
		if msg.Exited {
			res.ExitCode = msg.ExitCode
			res.TimeMS = msg.TimeMS
			return res, nil
		}
	}
}

// IsRemote reports whether err is a server-reported failure.
func IsRemote(err error) bool {
	var remote *ErrRemote
	return errors.As(err, &remote)
}
