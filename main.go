package main

import "steadydb/cmd"

func main() {
	cmd.Execute()
}
