package github

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// WriteActionOutput appends a key/value pair to the GitHub Actions output
// file in heredoc form, so multi-line review bodies survive intact. The
// delimiter is randomized and re-rolled if the value happens to contain it.
func WriteActionOutput(path, key, value string) error {
	delimiter, err := outputDelimiter(value)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter); err != nil {
		return fmt.Errorf("writing output %q: %w", key, err)
	}
	return nil
}

func outputDelimiter(value string) (string, error) {
	for i := 0; i < 10; i++ {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating output delimiter: %w", err)
		}
		delimiter := "dc_" + hex.EncodeToString(buf)
		if !strings.Contains(value, delimiter) {
			return delimiter, nil
		}
	}
	return "", fmt.Errorf("could not find a collision-free output delimiter")
}
