package walletloader

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

const defaultWalletFilePath = "data/wallet.key"

// KeyFileLoader loads the signing key from a file holding one hex encoded private key.
// Blank lines and lines starting with # are ignored.
type KeyFileLoader struct {
	filePath   string
	loggerInfo func(msg string, args ...any)
}

// NewKeyFileLoader creates a new KeyFileLoader reading path, or data/wallet.key when path is empty.
func NewKeyFileLoader(path string, loggerInfo func(msg string, args ...any)) *KeyFileLoader {
	if path == "" {
		path = defaultWalletFilePath
	}
	return &KeyFileLoader{filePath: path, loggerInfo: loggerInfo}
}

// Path returns the key file location.
func (l *KeyFileLoader) Path() string {
	return l.filePath
}

// LoadKey reads and parses the private key.
func (l *KeyFileLoader) LoadKey() (*ecdsa.PrivateKey, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet key file %s: %w", l.filePath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(line, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key in %s at line %d: %w", l.filePath, lineNum, err)
		}
		if l.loggerInfo != nil {
			l.loggerInfo("Wallet key loaded from file", "path", l.filePath, "address", crypto.PubkeyToAddress(key.PublicKey).Hex())
		}
		return key, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet key file %s: %w", l.filePath, err)
	}
	return nil, fmt.Errorf("no private key found in %s", l.filePath)
}
