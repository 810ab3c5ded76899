package main

import (
	"log"

	"spectral-workbench/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
