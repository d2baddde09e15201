package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/app"
	"github.com/gmsas95/playground/internal/config"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	serverMode = flag.Bool("server", false, "Run the HTTP API server")
	cliMode    = flag.Bool("cli", false, "Run a one-shot prompt from the command line")
	message    = flag.String("m", "", "Prompt to send (CLI mode)")
	provider   = flag.String("provider", "", "Provider to use (CLI mode)")
	model      = flag.String("model", "", "Model override (CLI mode)")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("playground version %s\n", version)
			return
		}
	}

	flag.Parse()

	config.LoadEnvFiles()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	switch {
	case *cliMode:
		prompt := *message
		if prompt == "" && flag.NArg() > 0 {
			prompt = flag.Arg(0)
		}
		if prompt == "" {
			logger.Fatal("CLI mode requires a prompt (-m or positional argument)")
		}
		if err := a.RunCLI(*provider, *model, prompt); err != nil {
			logger.Fatal("Generation failed", zap.Error(err))
		}
	case *serverMode:
		fallthrough
	default:
		if err := a.RunServer(); err != nil {
			logger.Fatal("Server exited", zap.Error(err))
		}
	}
}
