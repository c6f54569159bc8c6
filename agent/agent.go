package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/machagent/machagent/agent/errlog"
	"github.com/machagent/machagent/agent/shell"
	"github.com/machagent/machagent/agent/stream"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Agent is an HTTP service that executes shell commands on its host, either
// synchronously or fire-and-forget. It trusts its callers completely: there
// is no authentication, sandboxing, or resource limiting.
type Agent struct {
	logger *zap.SugaredLogger
	errLog *errlog.Logger

	listenAddr string
	errLogPath string
	workDir    string

	streamServer *stream.Server
	httpServer   *http.Server
}

type Option func(a *Agent)

func WithListenAddr(s string) Option {
	return func(a *Agent) {
		a.listenAddr = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		a.logger = l.Sugar()
	}
}

func WithLogLevel(l zapcore.Level) Option {
	return func(a *Agent) {
		a.logger = a.logger.WithOptions(zap.IncreaseLevel(l))
	}
}

// WithErrorLogPath overrides the failure-record file location, which defaults
// to app_error.log next to the executable.
func WithErrorLogPath(p string) Option {
	return func(a *Agent) {
		a.errLogPath = p
	}
}

// WithWorkDir sets the working directory for executed commands, which
// defaults to the agent's own working directory.
func WithWorkDir(d string) Option {
	return func(a *Agent) {
		a.workDir = d
	}
}

// New constructs a machine agent.
func New(opts ...Option) (*Agent, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	a := &Agent{
		logger:     logger.Named("agent").Sugar(),
		listenAddr: "0.0.0.0:6565",
	}
	for _, o := range opts {
		o(a)
	}
	a.errLog = errlog.New(a.logger, a.errLogPath)
	a.streamServer = &stream.Server{
		Log:     a.logger.Named("stream_server"),
		ErrLog:  a.errLog,
		WorkDir: a.workDir,
	}
	return a, nil
}

// ErrorLogPath returns the resolved location of the failure-record file.
func (a *Agent) ErrorLogPath() string {
	return a.errLog.Path()
}

// Run serves HTTP requests until Stop is called.
func (a *Agent) Run() error {
	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return fmt.Errorf("listening TCP: %w", err)
	}

	router := httprouter.New()
	router.GET("/", a.withRequestID(a.home))
	router.GET("/health", a.withRequestID(a.health))
	router.POST("/execute", a.withRequestID(a.execute))
	router.POST("/execute-async", a.withRequestID(a.executeAsync))
	router.GET("/execute/ws", a.withRequestID(a.executeWS))

	server := http.Server{Handler: router}
	a.httpServer = &server

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Agent) Stop() error {
	return a.httpServer.Close()
}

// withRequestID tags each request with a UUID on the response and the
// operator log.
func (a *Agent) withRequestID(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		a.logger.Debugw("handling request", "ID", id, "Method", r.Method, "Path", r.URL.Path)
		h(w, r, params)
	}
}

func (a *Agent) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.Debugf("error marshaling response: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (a *Agent) home(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	a.writeJSON(w, http.StatusOK, HomeResponse{
		Message: "Machine Agent API",
		Endpoints: map[string]string{
			"/execute":       "POST - Execute a command and wait for response",
			"/execute-async": "POST - Execute a command asynchronously (fire and forget)",
			"/execute/ws":    "GET - Execute a command, streaming output over a WebSocket",
			"/health":        "GET - Check API health",
		},
	})
}

func (a *Agent) health(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	a.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Platform: runtime.GOOS,
	})
}

func (a *Agent) execute(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	command, err := shell.Validate(req.Command)
	if err != nil {
		a.errLog.Record("/execute", err.Error(), req.Command)
		a.writeJSON(w, http.StatusBadRequest, ExecuteResponse{
			Success: false,
			Command: command,
			Error:   err.Error(),
		})
		return
	}

	// Blocks until the command exits. No timeout, and no kill on client
	// disconnect; see ExecuteRequest.Timeout.
	res, err := shell.Run(command, a.workDir)
	if err != nil {
		msg := fmt.Sprintf("command execution failed: %s", err)
		a.errLog.RecordDetail("/execute", msg, fmt.Sprintf("%+v", err), command)
		a.writeJSON(w, http.StatusInternalServerError, ExecuteResponse{
			Success: false,
			Command: command,
			Error:   err.Error(),
		})
		return
	}

	executed := true
	a.writeJSON(w, http.StatusOK, ExecuteResponse{
		Success:    true,
		Command:    command,
		Stdout:     &res.Stdout,
		Stderr:     &res.Stderr,
		ReturnCode: res.ExitCode,
		Executed:   &executed,
	})
}

func (a *Agent) executeAsync(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	command, err := shell.Validate(req.Command)
	if err != nil {
		a.errLog.Record("/execute-async", err.Error(), req.Command)
		a.writeJSON(w, http.StatusBadRequest, AsyncExecuteResponse{
			Success: false,
			Command: command,
			Error:   err.Error(),
		})
		return
	}

	res, err := shell.Start(command, a.workDir)
	if err != nil {
		msg := fmt.Sprintf("failed to start command: %s", err)
		a.errLog.RecordDetail("/execute-async", msg, fmt.Sprintf("%+v", err), command)
		a.writeJSON(w, http.StatusInternalServerError, AsyncExecuteResponse{
			Success: false,
			Command: command,
			Error:   err.Error(),
		})
		return
	}

	message := "Command started successfully"
	a.writeJSON(w, http.StatusOK, AsyncExecuteResponse{
		Success:   true,
		Message:   &message,
		Command:   command,
		PID:       uint(res.PID),
		StartedAt: res.StartedAt.Format(time.RFC3339),
		Status:    "running",
	})
}

func (a *Agent) executeWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	a.streamServer.ServeHTTP(w, r)
}
