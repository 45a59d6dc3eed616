package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/voluzi/ecsadmin/cmd/ecsadmin/cmd"
)

func main() {
	cmd.Execute()
}
