package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/media-luna/landmarkid/internal/config"
	"github.com/media-luna/landmarkid/internal/logger"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Error("main", err)
		os.Exit(1)
	}
	if dsn := os.Getenv("LANDMARKID_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if cfg.LogLevel == "debug" {
		logger.SetLevel(slog.LevelDebug)
	}

	var cmdErr error
	switch os.Args[1] {
	case "enroll":
		cmdErr = runEnroll(cfg, os.Args[2:])
	case "query":
		cmdErr = runQuery(cfg, os.Args[2:])
	case "list":
		cmdErr = runList(cfg, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		logger.Error(os.Args[1], cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `landmarkid — landmark audio fingerprinting engine

Usage:
  landmarkid enroll <file> [--title NAME]
  landmarkid query <file>
  landmarkid list`)
}
