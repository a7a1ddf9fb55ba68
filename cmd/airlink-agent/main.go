package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/airlink-io/airlink/cmd/airlink-agent/app"
)

func main() {
	app.NewApp("airlink-agent").Run()
}
