package main

import (
	"fmt"
	"os"
	"strings"

	"murph/internal/ipc"
)

func main() {
	cmd := "trigger"
	var text string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if len(os.Args) > 2 {
		text = strings.Join(os.Args[2:], " ")
	}

	if err := ipc.Send(cmd, text); err != nil {
		fmt.Println("murph-daemon not running:", err)
	}
}
