package main

import "github.com/hermetic-ci/hermetic/cmd/hermetic/cmd"

func main() {
	cmd.Execute()
}
