package main

import "github.com/brilliance/hwachat/internal/commands"

func main() {
	commands.Execute()
}
