package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andresmejia3/facekit/internal/crawler"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// isInteractive reports whether stdin is a terminal a human can answer prompts on.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt prints label and reads one trimmed line from r.
func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("no answer to %q: %w", strings.TrimSpace(label), err)
	}
	return strings.TrimSpace(line), nil
}

// parseCount accepts a strictly positive integer.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: got %q", crawler.ErrInvalidCount, strings.TrimSpace(s))
	}
	return n, nil
}

func confirm(r *bufio.Reader, label string) bool {
	res, err := prompt(r, label+" [y/N]: ")
	if err != nil {
		return false
	}
	res = strings.ToLower(res)
	return res == "y" || res == "yes"
}
