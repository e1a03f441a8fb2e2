package main

import "lecturehub/cmd/cli/command"

func main() {
	command.Execute()
}
