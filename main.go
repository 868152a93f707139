package main

import "github.com/user/secmon/cmd"

func main() {
	cmd.Execute()
}
