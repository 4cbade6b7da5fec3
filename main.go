package main

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/app"
)

func run() {
	ctx := context.Background()

	sinkApp, err := app.NewSinkApp(ctx)
	if err != nil {
		panic(fmt.Sprintf("error creating sink app: %v", err))
	}
	defer sinkApp.Close(ctx)

	if err := sinkApp.Start(ctx); err != nil {
		panic(fmt.Sprintf("error starting sink app: %v", err))
	}
}

func main() {

	fmt.Println("Starting sink...")
	run()
	fmt.Println("Sink stopped")
}
