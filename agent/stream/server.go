package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/machagent/machagent/agent/errlog"
	"github.com/machagent/machagent/agent/shell"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Endpoint is the name under which streamed-execution failures are recorded.
const Endpoint = "/execute/ws"

// Server upgrades requests to WebSocket connections and runs one streamed
// shell execution per connection.
type Server struct {
	Log     *zap.SugaredLogger
	ErrLog  *errlog.Logger
	WorkDir string
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		s.Log.Debugf("error accepting WebSocket conn: %s", err)
		return
	}
	wsConn.SetReadLimit(readLimit)
	s.Log.Debug("accepted WebSocket conn")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	runner := &serverExecRunner{
		log:     s.Log.Named("server_runner"),
		errLog:  s.ErrLog,
		workDir: s.WorkDir,
		conn:    wsConn,
		ctx:     ctx,
		cancel:  cancel,
	}
	runner.run()
}

type serverExecRunner struct {
	log     *zap.SugaredLogger
	errLog  *errlog.Logger
	workDir string
	conn    *websocket.Conn
	ctx     context.Context
	cancel  func()

	cmd *exec.Cmd

	wg sync.WaitGroup

	closeConnOnce sync.Once
}

func (r *serverExecRunner) run() {
	startTime, err := r.readFirstMessageAndStart()
	if err != nil {
		r.log.Debugf("not starting process: %s", err)
		r.close(websocket.StatusNormalClosure, "")
		return
	}
	r.log.Debugf("process %d started", r.cmd.Process.Pid)

	r.wg.Add(2)
	go r.watchConn()
	go r.waitAndWriteResult(startTime)

	r.wg.Wait()
}

func (r *serverExecRunner) close(code websocket.StatusCode, reason string) {
	r.closeConnOnce.Do(func() {
		if err := r.conn.Close(code, reason); err != nil {
			r.log.Debugf("error closing conn: %s", err)
		}
	})
}

// writeErr reports a terminal failure to the client. Best-effort: the client
// may already be gone.
func (r *serverExecRunner) writeErr(msg string) {
	err := wsjson.Write(r.ctx, r.conn, execResponseMessage{Err: msg})
	if err != nil {
		r.log.Debugf("error sending failure message: %s", err)
	}
}

func (r *serverExecRunner) readFirstMessageAndStart() (time.Time, error) {
	var req execRequestMessage
	if err := wsjson.Read(r.ctx, r.conn, &req); err != nil {
		return time.Time{}, fmt.Errorf("reading first message: %w", err)
	}

	command, err := shell.Validate(req.Command)
	if err != nil {
		if errors.Is(err, shell.ErrEmptyCommand) {
			r.errLog.Record(Endpoint, err.Error(), req.Command)
		}
		r.writeErr(err.Error())
		return time.Time{}, err
	}

	cmd := shell.Command(command, r.workDir)
	cmd.Stdout = &wsJSONWriter{
		log:  r.log.Named("stdout_writer"),
		ctx:  r.ctx,
		conn: r.conn,
		writeMsg: func(b []byte) any {
			return execResponseMessage{Stdout: b}
		},
	}
	cmd.Stderr = &wsJSONWriter{
		log:  r.log.Named("stderr_writer"),
		ctx:  r.ctx,
		conn: r.conn,
		writeMsg: func(b []byte) any {
			return execResponseMessage{Stderr: b}
		},
	}

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		msg := fmt.Sprintf("failed to start command: %s", err)
		r.errLog.RecordDetail(Endpoint, msg, fmt.Sprintf("%+v", err), command)
		r.writeErr(err.Error())
		return time.Time{}, err
	}
	r.cmd = cmd

	err = wsjson.Write(r.ctx, r.conn, execResponseMessage{Started: true, PID: cmd.Process.Pid})
	if err != nil {
		r.log.Debugf("error sending start message: %s", err)
	}
	return startTime, nil
}

// watchConn reads the connection until it errors. The client sends nothing
// after the first message, so a read returning is either a control-frame
// close or a dropped connection; both kill the process, which unblocks
// waitAndWriteResult.
func (r *serverExecRunner) watchConn() {
	defer r.wg.Done()

	var msg execRequestMessage
	err := wsjson.Read(r.ctx, r.conn, &msg)
	r.log.Debugf("conn watcher done: %s", err)
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
}

func (r *serverExecRunner) waitAndWriteResult(startTime time.Time) {
	defer r.wg.Done()

	err := r.cmd.Wait()
	timeMS := time.Since(startTime).Milliseconds()

	exitCode := r.cmd.ProcessState.ExitCode()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			r.log.Debugf("unexpected exit error: %s", err)
		}
	}

	r.log.Debugf("process %d exited with code %d, sending exit message", r.cmd.Process.Pid, exitCode)
	err = wsjson.Write(r.ctx, r.conn, execResponseMessage{
		Exited:   true,
		ExitCode: exitCode,
		TimeMS:   timeMS,
	})
	if err != nil {
		r.log.Debugf("error sending exit message: %s", err)
	}

	r.close(websocket.StatusNormalClosure, "")
	r.cancel()
}
