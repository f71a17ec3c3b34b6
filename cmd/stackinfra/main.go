package main

import "github.com/eleven-am/stackinfra/cmd/stackinfra/cmd"

func main() {
	cmd.Execute()
}
