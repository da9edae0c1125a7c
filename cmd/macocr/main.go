package main

import "github.com/MeKo-Tech/macocr/cmd/macocr/cmd"

func main() {
	cmd.Execute()
}
