package main

import (
	"context"
	"log"

	"github.com/foiaio/foiadb/internal/foiadb"
)

func main() {
	if err := foiadb.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
