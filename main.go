package main

import "github.com/switchboard-ai/switchboard/cmd"

func main() {
	cmd.Execute()
}
