package main

import (
	"github.com/joho/godotenv"

	"github.com/fakeyudi/screencast/cmd"
)

func main() {
	// A missing .env is fine; SCREENCAST_* variables may come from anywhere.
	_ = godotenv.Load()
	cmd.Execute()
}
