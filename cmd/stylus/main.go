package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin/app/logger"
)

var log = logger.NewNamed("cmd.stylus")

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
