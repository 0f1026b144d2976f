package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/cmd"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/database"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	configureLogging()

	command := "run"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var err error
	switch {
	case command == "migrate":
		err = handleMigrationCommand(args)
	case command == "run":
		err = cmd.Run(ctx)
	case command == "help" || command == "-h" || command == "--help":
		printUsage()
	case cmd.IsAdminCommand(command):
		err = cmd.RunAdmin(ctx, command, args, os.Stdout)
	default:
		printUsage()
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func configureLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ledger migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: ledger <command> [flags]\n\ncommands:\n  run\n  migrate up|down [steps]|status\n%s", cmd.AdminUsage())
}
