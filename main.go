package main

import "agent-browser/cmd"

func main() {
	cmd.Execute()
}
