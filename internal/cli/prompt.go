package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForDirectory prompts the user interactively for a directory path.
// Returns the current directory if the user enters nothing.
func PromptForDirectory() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	input := promptLine(os.Stdin, fmt.Sprintf("Directory [%s]: ", cwd))
	if input == "" {
		return cwd
	}
	return input
}

// PromptForPassword asks for the archive password. An empty answer means no
// password.
func PromptForPassword() string {
	return promptLine(os.Stdin, "Password (leave empty for none): ")
}

func promptLine(in io.Reader, prompt string) string {
	fmt.Print(prompt)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}
	return strings.TrimSpace(input)
}
