package main

import (
	"log"

	"karaoke-live/cmd"
	_ "karaoke-live/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
