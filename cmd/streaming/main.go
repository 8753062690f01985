package main

import (
	"log"

	"github.com/freegatik/music-streaming/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
