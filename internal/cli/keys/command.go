package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Voralis/grantly/internal/config"
	"github.com/Voralis/grantly/internal/domain/auth"
)

// Command implements the keys management command
type Command struct{}

func (c *Command) Name() string {
	return "keys"
}

func (c *Command) Description() string {
	return "Manage verification keys (generate, list)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcmd := args[0]
	switch subcmd {
	case "generate":
		return c.runGenerate(args[1:])
	case "list":
		return c.runList(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", subcmd)
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: grantly-cli keys <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  generate              Generate a new RSA key pair\n")
	fmt.Fprintf(os.Stderr, "    -kid <id>           Key ID (required)\n")
	fmt.Fprintf(os.Stderr, "    -bits <size>        Key size: 2048, 3072, or 4096 (default: 2048)\n")
	fmt.Fprintf(os.Stderr, "    -path <dir>         Custom keys directory (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  list                  List all available verification keys\n")
}

func (c *Command) runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	kid := fs.String("kid", "", "Key ID (required)")
	bits := fs.Int("bits", 2048, "Key size in bits (2048, 3072, or 4096)")
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *kid == "" {
		return fmt.Errorf("key ID is required")
	}
	if *bits != 2048 && *bits != 3072 && *bits != 4096 {
		return fmt.Errorf("key size must be 2048, 3072, or 4096")
	}

	keysPath, err := resolveKeysPath(*customPath)
	if err != nil {
		return err
	}

	return generateKey(keysPath, *kid, *bits)
}

func (c *Command) runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	keysPath, err := resolveKeysPath(*customPath)
	if err != nil {
		return err
	}

	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return listKeys(keysPath, cfg.Auth.ActiveKID)
}

func resolveKeysPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}

	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg.Auth.KeysPath, nil
}

func generateKey(keysPath, kid string, bits int) error {
	if err := os.MkdirAll(keysPath, 0700); err != nil {
		return fmt.Errorf("failed to create keys directory: %w", err)
	}

	privPath := filepath.Join(keysPath, fmt.Sprintf("private-%s.pem", kid))
	pubPath := filepath.Join(keysPath, fmt.Sprintf("public-%s.pem", kid))

	if _, err := os.Stat(privPath); err == nil {
		return fmt.Errorf("key with ID %s already exists at %s", kid, privPath)
	}
	if _, err := os.Stat(pubPath); err == nil {
		return fmt.Errorf("key with ID %s already exists at %s", kid, pubPath)
	}

	fmt.Printf("Generating %d-bit RSA key pair...\n", bits)
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}
	fPriv, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := pem.Encode(fPriv, privateKeyPEM); err != nil {
		fPriv.Close()
		return err
	}
	if err := fPriv.Close(); err != nil {
		return err
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return err
	}
	publicKeyPEM := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	}
	fPub, err := os.OpenFile(pubPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if err := pem.Encode(fPub, publicKeyPEM); err != nil {
		fPub.Close()
		return err
	}
	if err := fPub.Close(); err != nil {
		return err
	}

	fmt.Printf("Key pair generated successfully\n")
	fmt.Printf("  Key ID: %s\n", kid)
	fmt.Printf("  Private key: %s (keep this on the token engine host)\n", privPath)
	fmt.Printf("  Public key: %s\n", pubPath)
	return nil
}

func listKeys(keysPath, activeKID string) error {
	info, err := os.Stat(keysPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("keys directory invalid: %s", keysPath)
	}

	keyStore, err := auth.LoadKeys(keysPath, activeKID)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}

	fmt.Printf("Verification keys in %s:\n\n", keysPath)
	for i := 0; i < keyStore.KeySet.Len(); i++ {
		key, ok := keyStore.KeySet.Key(i)
		if !ok {
			continue
		}

		kid, _ := key.KeyID()
		marker := " "
		if kid == activeKID {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, kid)
	}
	fmt.Printf("\n  * active key\n")
	return nil
}
