package main

import (
	"log"
	"os"

	"github.com/trezcool/classboard/core"
	logsvc "github.com/trezcool/classboard/services/logger"
)

func main() {
	conf := core.NewConfig()

	zapLogger, err := logsvc.NewZapLogger("ADMIN", conf.Debug)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zapLogger, conf)
	logger.Enable(false)
	defer logger.Sync()

	// start CLI
	cli := newCommandLine(conf, logger, os.Stdout)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
