// Package main is the sksurgery command itself.
package main

import (
	"log"
	"os"

	"github.com/sksurgery/stereovision/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
