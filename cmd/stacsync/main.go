package main

import "github.com/aweris/stacsync/cmd/stacsync/cmd"

func main() {
	cmd.Execute()
}
