package main

import "sshclient/cmd"

func main() {
	cmd.Execute()
}
