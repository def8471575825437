// Command predict classifies one image and prints the verdict as JSON.
//
//	predict path/to/wall.jpg
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Brownie44l1/crack-api/internal/config"
	"github.com/Brownie44l1/crack-api/internal/container"
	"github.com/Brownie44l1/crack-api/internal/logging"
	"github.com/Brownie44l1/crack-api/internal/verdict"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	enc := json.NewEncoder(stdout)

	if len(args) < 1 {
		enc.Encode(map[string]string{"error": "No image path provided"})
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		enc.Encode(verdict.Failure(err.Error()))
		return 1
	}

	// stdout carries the verdict, so logs go to stderr
	logger := logging.New(os.Stderr, cfg.LogLevel)

	app, err := container.New(cfg, logger)
	if err != nil {
		enc.Encode(verdict.Failure(err.Error()))
		return 1
	}
	defer app.Close()

	if err := enc.Encode(app.Analyzer.Analyze(args[0])); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
