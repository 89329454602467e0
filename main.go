package main

import "github.com/ridoystarlord/redatlas/cmd"

func main() {
	cmd.Execute()
}
