package main

import (
	"os"

	"github.com/maxdaylight/HomelabWiki/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
