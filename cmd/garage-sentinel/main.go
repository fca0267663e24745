package main

import "github.com/oshokin/garage-sentinel/cmd/garage-sentinel/cmd"

func main() {
	cmd.Execute()
}
