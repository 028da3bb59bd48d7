package main

import (
	"fmt"
	"os"

	"github.com/orbitpath/orbitpath-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := application.Run(addr); err != nil {
		application.Log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
