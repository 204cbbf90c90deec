package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyToken is returned when the user enters no token.
var ErrEmptyToken = errors.New("no token entered")

// PromptToken asks for the relay token on out. On a terminal the input is
// not echoed; otherwise one line is read from in.
func PromptToken(in *os.File, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, PromptStyle.Render("Relay token: "))

	if term.IsTerminal(int(in.Fd())) {
		secret, err := term.ReadPassword(int(in.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return checkToken(string(secret))
	}

	return readTokenLine(in)
}

func readTokenLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return checkToken(line)
}

func checkToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
