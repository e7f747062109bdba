package stylusplugin

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	ErrMissingPrivateKey = errors.New("private key is not set")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Key sources reported by ResolvePrivateKey
const (
	KeySourceOptions = "options"
	KeySourceEnv     = "env"
	KeySourceDevnode = "devnode"
)

// ParsePrivateKey parses a hex encoded secp256k1 key, with or without 0x prefix.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyHex = strings.TrimSpace(privateKeyHex)
	if strings.HasPrefix(privateKeyHex, "0x") || strings.HasPrefix(privateKeyHex, "0X") {
		privateKeyHex = privateKeyHex[2:]
	}
	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	priv, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	return priv, nil
}

// KeyAddress derives the account address of the key.
func KeyAddress(privateKeyHex string) (common.Address, error) {
	priv, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// RedactKey keeps the first and last 10 characters of a secret.
func RedactKey(s string) string {
	if len(s) <= 20 {
		return "***"
	}
	return s[:10] + "..." + s[len(s)-10:]
}

// LoadEnvFile loads variables from the file without overriding the ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ResolvePrivateKey picks the signing key: the explicit one, then PRIVATE_KEY,
// then the devnode key when the network is local.
func ResolvePrivateKey(explicit string, cfg *StylusConfig) (key, source string, err error) {
	if explicit != "" {
		return explicit, KeySourceOptions, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvPrivateKey)); env != "" {
		return env, KeySourceEnv, nil
	}
	if cfg != nil && cfg.IsLocalNetwork() {
		log.Warn("PRIVATE_KEY is not set, using the nitro devnode key", zap.String("network", cfg.Contract.Network))
		return DevnodePrivateKey, KeySourceDevnode, nil
	}
	return "", "", fmt.Errorf("%w: set %s", ErrMissingPrivateKey, EnvPrivateKey)
}
