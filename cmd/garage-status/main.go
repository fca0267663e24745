package main

import "github.com/oshokin/garage-sentinel/cmd/garage-status/cmd"

func main() {
	cmd.Execute()
}
