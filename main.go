package main

import "github.com/agentic-research/cpharvest/cmd"

func main() {
	cmd.Execute()
}
