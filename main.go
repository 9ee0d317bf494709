package main

import (
	"log"
)

//	@title			Catalog API
//	@version		1.0
//	@description	Authors and books catalog with unique emails and isbns, and books bound to existing authors.
//	@BasePath		/

//go:generate swag init

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("application failed to initialized: ", err)
	}
	err = app.Run()
	if err != nil {
		log.Fatal("application exited. check logs for more details.", err)
	}
}
