package main

import "github.com/emiliopalmerini/agentsync/internal/cli"

func main() {
	cli.Execute()
}
