package main

import (
	"dataport/cmd"

	_ "dataport/internal/drivers" // optional SQL drivers register themselves per build tags
)

func main() {
	cmd.Execute()
}
