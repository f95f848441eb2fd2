package main

import "github.com/okutsev/TuneRoom/cmd"

func main() {
	cmd.Execute()
}
