package main

import "clip-forge/cmd"

func main() {
	cmd.Execute()
}
