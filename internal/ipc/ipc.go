// Package ipc is the unix-socket control channel for the daemon. murph-ctl
// uses it to force a turn without the wake word or to route typed text.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/murph.sock"

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

func StartServer(handler func(ControlMessage)) error {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler func(ControlMessage)) {
	defer conn.Close()

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		return
	}
	handler(msg)
}

func Send(cmd, text string) error {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	return enc.Encode(ControlMessage{Cmd: cmd, Text: text})
}
