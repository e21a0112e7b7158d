package main

import "github.com/brahma/api-tracker/internal/cmd"

func main() {
	cmd.Execute()
}
