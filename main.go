package main

import "github.com/nextlevelbuilder/heyclaw/cmd"

func main() {
	cmd.Execute()
}
