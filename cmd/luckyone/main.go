package main

import (
	"os"

	"github.com/DrDelphi/LuckyOneBot/commands"
	logger "github.com/ElrondNetwork/elrond-go-logger"
)

var log = logger.GetOrCreate("main")

func main() {
	app := commands.NewApp()

	err := app.Run(os.Args)
	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
