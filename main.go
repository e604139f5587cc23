package main

import "github.com/distmin/distmin/cmd"

func main() {
	cmd.Execute()
}
