package main

import "github.com/projtrack/ptt/cmd"

func main() {
	cmd.Execute()
}
