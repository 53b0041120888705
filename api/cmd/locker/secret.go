package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// getSecret prefers the environment over an interactive prompt.
func getSecret() (string, error) {
	if s := os.Getenv(SecretEnvVar); s != "" {
		return s, nil
	}
	return readHidden("Secret: ")
}

// readInput reads a value without echo on a terminal, or all of STDIN when piped.
func readInput(prompt string) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		return readHidden(prompt)
	}
	raw, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

func readHiddenConfirmed(prompt, confirmPrompt string) (string, error) {
	first, err := readHidden(prompt)
	if err != nil {
		return "", err
	}
	second, err := readHidden(confirmPrompt)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("values do not match")
	}
	return first, nil
}

func readHidden(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		// STDIN is piped; fall back to the controlling terminal
		tty, err := os.Open("/dev/tty")
		if err != nil {
			if runtime.GOOS == "windows" {
				return "", fmt.Errorf("secret must be set via %s when STDIN is piped", SecretEnvVar)
			}
			return "", fmt.Errorf("cannot prompt: STDIN is piped and /dev/tty is not available")
		}
		defer tty.Close()
		fd = int(tty.Fd())
	}

	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(value), nil
}
