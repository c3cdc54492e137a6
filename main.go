package main

import "tree-growth-backend/cmd"

func main() {
	cmd.Run()
}
