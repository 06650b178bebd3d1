package main

import "github.com/pfrederiksen/eventscout/internal/cli"

func main() {
	cli.Execute()
}
