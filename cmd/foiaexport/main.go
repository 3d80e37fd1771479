package main

import (
	"context"
	"log"

	"github.com/foiaio/foiadb/internal/foiaexport"
)

func main() {
	if err := foiaexport.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
