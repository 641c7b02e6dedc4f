package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadAddresses reads one address per line from path. Blank lines and # comments are skipped;
// the remaining lines are returned as written so callers can report malformed ones.
func LoadAddresses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open address file %s: %w", path, err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning address file %s: %w", path, err)
	}
	return addresses, nil
}
