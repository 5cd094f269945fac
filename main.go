package main

import (
	"os"

	"github.com/spacehome/spacehome/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
