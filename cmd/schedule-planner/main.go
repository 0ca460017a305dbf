package main

import "github.com/pfrederiksen/schedule-planner/internal/cli"

func main() {
	cli.Execute()
}
