package main

import (
	"context"
	"log"

	"github.com/foiaio/foiadb/internal/foiaseed"
)

func main() {
	if err := foiaseed.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
