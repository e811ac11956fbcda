package main

import (
	"C90FM/cmd"
)

func main() {
	cmd.Execute()
}
