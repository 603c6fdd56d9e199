package main

import "github.com/user/podmark/cmd"

func main() {
	cmd.Execute()
}
