package main

import "github.com/crossfade/automix/cmd"

func main() {
	cmd.Execute()
}
