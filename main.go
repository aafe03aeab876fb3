package main

import "github.com/rlegacy/launcher/cmd"

func main() {
	cmd.Execute()
}
