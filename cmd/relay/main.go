package main

import (
	"os"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/cmd/relay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
