package simulator

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrQuit         = errors.New("quit")
	ErrInvalidInput = errors.New("Invalid input. Please enter a number or 'q'.")
)

// PrintMenu writes the banner and the numbered list of samples.
func PrintMenu(w io.Writer) {
	fmt.Fprintln(w, "\n===== GCP AI Security Monitor - Local Simulator =====")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This tool simulates processing security findings using Gemini AI")
	fmt.Fprintln(w, "Available finding types:")
	for i, t := range Types() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, t)
	}
}

// ParseChoice maps a menu answer to a sample type. It returns ErrQuit for
// "q" and a user-facing error for anything else it cannot use.
func ParseChoice(input string) (string, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "q") {
		return "", ErrQuit
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return "", ErrInvalidInput
	}

	types := Types()
	if n < 1 || n > len(types) {
		return "", fmt.Errorf("Invalid choice. Please enter a number between 1 and %d.", len(types))
	}
	return types[n-1], nil
}
