package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/utils"
)

const defaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader implements the port.TokenProvider interface.
// Each <identifier>.json file under the directory lists the tokens tracked on that network.
type TokenFileLoader struct {
	tokenDirPath string
	loggerInfo   func(msg string, args ...any)
	loggerWarn   func(msg string, args ...any)
}

var _ port.TokenProvider = (*TokenFileLoader)(nil)

// NewTokenLoader creates a new TokenFileLoader reading dir, or data/tokens when dir is empty.
func NewTokenLoader(dir string, loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) *TokenFileLoader {
	if dir == "" {
		dir = defaultTokenDirectoryPath
	}
	return &TokenFileLoader{
		tokenDirPath: dir,
		loggerInfo:   loggerInfo,
		loggerWarn:   loggerWarn,
	}
}

// GetTokensByNetwork reads the token files of the given networks and keys the result by network identifier.
// Tokens whose chain id differs from their network's are skipped. A missing directory yields no tokens.
func (l *TokenFileLoader) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	tokensByNetwork := make(map[string][]entity.TokenInfo)

	files, err := os.ReadDir(l.tokenDirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.warn("Token directory does not exist, no tokens will be tracked", "path", l.tokenDirPath)
			return tokensByNetwork, nil
		}
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	activeNetworksMap := make(map[string]entity.NetworkDefinition, len(activeNetworkDefs))
	for _, netDef := range activeNetworkDefs {
		activeNetworksMap[netDef.Identifier] = netDef
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		identifier := strings.ToLower(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		networkDef, isActive := activeNetworksMap[identifier]
		if !isActive {
			continue
		}

		filePath := filepath.Join(l.tokenDirPath, file.Name())
		tokensInFile, err := utils.LoadTokensFromJSON(filePath)
		if err != nil {
			l.warn("Failed to load tokens from file, skipping file.", "path", filePath, "error", err)
			continue
		}

		valid := make([]entity.TokenInfo, 0, len(tokensInFile))
		for _, token := range tokensInFile {
			if token.ChainID != networkDef.ChainID {
				l.warn("Token has mismatched ChainID in file, skipping token.",
					"file", filePath, "token_symbol", token.Symbol, "token_chain_id", token.ChainID,
					"expected_chain_id", networkDef.ChainID)
				continue
			}
			valid = append(valid, token)
		}

		if len(valid) > 0 {
			tokensByNetwork[identifier] = append(tokensByNetwork[identifier], valid...)
			l.info("Loaded tokens for network", "network_identifier", identifier, "file", file.Name(), "count", len(valid))
		}
	}

	return tokensByNetwork, nil
}

func (l *TokenFileLoader) info(msg string, args ...any) {
	if l.loggerInfo != nil {
		l.loggerInfo(msg, args...)
	}
}

func (l *TokenFileLoader) warn(msg string, args ...any) {
	if l.loggerWarn != nil {
		l.loggerWarn(msg, args...)
	}
}
