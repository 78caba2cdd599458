package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/simigo/client/datacore/internal/bootstrap"
	"gitlab.com/simigo/client/datacore/pkg/contextkeys"
)

func main() {
	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The app logger does not exist yet.
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}
}
