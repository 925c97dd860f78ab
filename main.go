package main

import "github.com/qobs-build/qjit/cmd"

func main() {
	cmd.Execute()
}
