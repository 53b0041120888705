package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const (
	Version = "1.0.0"

	// SecretEnvVar supplies the weak secret for offline seal/open.
	SecretEnvVar = "LOCKER_SECRET"

	// ServerEnvVar overrides the default API address.
	ServerEnvVar  = "LOCKER_SERVER"
	defaultServer = "http://localhost:8080"
)

var errUsage = errors.New("usage")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		printUsage()
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "seal":
		return cmdSeal(rest)
	case "open":
		return cmdOpen(rest)
	case "register":
		return cmdRegister(ctx, rest)
	case "login":
		return cmdLogin(ctx, rest)
	case "ls", "list":
		return cmdList(ctx, rest)
	case "add":
		return cmdAdd(ctx, rest)
	case "rm", "delete":
		return cmdRemove(ctx, rest)
	case "help", "--help", "-h":
		printUsage()
		return nil
	case "version", "--version", "-v":
		fmt.Fprintf(os.Stderr, "locker version %s\n", Version)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	usage := `locker - client for the locker password vault

USAGE:
    locker <command> [options]

OFFLINE COMMANDS:
    seal             Seal plaintext from STDIN (or a prompt) into a cipher blob
    open [BLOB]      Open a cipher blob from the argument or STDIN

VAULT COMMANDS:
    register --email=E          Create an account
    login --email=E             Log in and store the session
    ls                          List entries with opened passwords
    add --title=T --username=U [--notes=N]
                                Seal a prompted password and store it
    rm ID                       Delete an entry

OPTIONS:
    --server=URL     API address (default: $LOCKER_SERVER or http://localhost:8080)

SECRET:
    seal/open read the weak secret from LOCKER_SECRET, or prompt for it.
    Vault commands seal with the account's user ID.

`
	fmt.Fprint(os.Stderr, usage)
}
