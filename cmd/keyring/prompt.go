package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("passwords do not match")

// stdin is shared by every prompt; a fresh reader per prompt would swallow the
// lines buffered for the next one.
var stdin = bufio.NewReader(os.Stdin)

// readLine returns the next line of r without its line ending.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// readPassword reads a password without echo when stdin is a terminal, and a
// single line otherwise so scripts can pipe one in.
func readPassword(text string) ([]byte, error) {
	fmt.Fprint(os.Stderr, text)

	if !term.IsTerminal(int(syscall.Stdin)) { // nolint:unconvert
		return readLine(stdin)
	}

	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Fprintln(os.Stderr)
	return pw, err
}

// passwordOrPrompt returns flagValue when the flag was set and prompts otherwise.
func passwordOrPrompt(flagValue *string, text string, confirm bool) (string, error) {
	if flagValue != nil && *flagValue != "" {
		return *flagValue, nil
	}
	pw, err := readPassword(text)
	if err != nil {
		return "", err
	}
	if confirm && term.IsTerminal(int(syscall.Stdin)) { // nolint:unconvert
		again, err := readPassword("Confirm: ")
		if err != nil {
			return "", err
		}
		if string(again) != string(pw) {
			return "", errPasswordMismatch
		}
	}
	return string(pw), nil
}
