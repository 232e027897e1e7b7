package main

import "github.com/difytools/plugin-releaser/cmd/plugin-releaser/cmd"

func main() {
	cmd.Execute()
}
