package main

import "replikeep/cmd/server/cmd"

func main() {
	cmd.Execute()
}
