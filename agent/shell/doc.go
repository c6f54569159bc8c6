/*
Package shell runs caller-supplied shell command text on the host.

The command string is handed to the platform shell as a single argument
("sh -c" everywhere except Windows, which uses "cmd /C"); the agent performs
no parsing, quoting, or escaping of its own, so shell metacharacters behave
exactly as they would interactively. The caller is fully trusted.

Run blocks until the command exits and captures its output. Start spawns the
command with stdout and stderr discarded and returns immediately; a detached
goroutine waits on the child purely so the OS can reap it. Neither path
supports cancellation once the process has been spawned.
*/
package shell
