package main

import "github.com/strrl/dayflow/internal/cmd"

func main() {
	cmd.Execute()
}
