// Command server runs the dialer messaging backend. With -token-for it prints an
// access token for the given number and exits.
package main

import (
	"context"
	"log"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/config"
)

func main() {
	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	app.Run(context.Background())
}
