package main

import "replikeep/cmd/client/cmd"

func main() {
	cmd.Execute()
}
