package main

import "github.com/mythos-lang/go-mythos/cmd/mythos/cmd"

func main() {
	cmd.Execute()
}
