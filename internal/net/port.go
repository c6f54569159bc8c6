package net

import (
	"fmt"
	"net"
)

// LocalListenAddr reserves an ephemeral TCP port on the loopback interface
// and returns it as a ready-to-use host:port listen address. The port is
// released before returning, so there is a small window in which another
// process could grab it; acceptable for tests.
func LocalListenAddr() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port), nil
}
