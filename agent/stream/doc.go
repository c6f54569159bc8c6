/*
Package stream provides a client and server for streamed shell execution over
a WebSocket. The client sends a single request message carrying the shell
command text; the server runs it through the platform shell and streams
stdout and stderr chunks back, ending with an exit message carrying the exit
code and elapsed milliseconds.

Executions are scoped to the WebSocket connection: if the connection dies for
any reason the process is killed. A command that should outlive the caller
belongs on the fire-and-forget endpoint instead.

The protocol proceeds as follows:

 1. The client opens a WebSocket connection with the server.
 2. The client sends a request message containing the Command field.
 3. The server replies with a message with Started=true and the PID, then
    messages carrying stdout and stderr bytes while the process runs.
 4. When the process exits, the server sends a message with Exited=true, the
    ExitCode, and TimeMS, and the connection is closed.

Validation failures and spawn failures are reported in a message with a
non-empty Err field; no output messages follow.
*/
package stream
