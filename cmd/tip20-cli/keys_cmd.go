package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tip20kit/cmd/internal/passphrase"
	"tip20kit/config"
	"tip20kit/crypto"
)

type secret interface {
	Get() (string, error)
}

// newPassphrase is replaced in tests.
var newPassphrase = func(envVar, label string) secret {
	return passphrase.NewSource(envVar, label)
}

func runKeys(_ context.Context, _ *session, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("keys: expected new, import or address")
	}
	switch args[0] {
	case "new":
		return runKeysNew(args[1:], stdout)
	case "import":
		return runKeysImport(args[1:], stdout)
	case "address":
		return runKeysAddress(args[1:], stdout)
	default:
		return fmt.Errorf("keys: unknown subcommand %q", args[0])
	}
}

type keystoreFlags struct {
	out     string
	passEnv string
	force   bool
}

func (k *keystoreFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&k.out, "out", "", "keystore file to write")
	fs.StringVar(&k.passEnv, "pass-env", config.DefaultPassphraseEnv, "environment variable holding the keystore passphrase")
	fs.BoolVar(&k.force, "force", false, "overwrite an existing keystore file")
}

func (k *keystoreFlags) save(key *crypto.PrivateKey, stdout io.Writer) error {
	if err := required("out", k.out); err != nil {
		return err
	}
	if !k.force {
		if _, err := os.Stat(k.out); err == nil {
			return fmt.Errorf("keystore file %s already exists (use --force to overwrite)", k.out)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	pass, err := newPassphrase(k.passEnv, filepath.Base(k.out)).Get()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(k.out, key, pass); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return writeJSON(stdout, map[string]string{"address": key.Address().Hex(), "keystore": k.out})
}

func runKeysNew(args []string, stdout io.Writer) error {
	fs := newFlagSet("keys new")
	var k keystoreFlags
	k.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	return k.save(key, stdout)
}

// runKeysImport encrypts a hex private key read from an environment
// variable, so the raw key never appears on the command line.
func runKeysImport(args []string, stdout io.Writer) error {
	fs := newFlagSet("keys import")
	var k keystoreFlags
	k.register(fs)
	keyEnv := fs.String("key-env", "TIP20_PRIVATE_KEY", "environment variable holding the hex private key")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	raw, ok := os.LookupEnv(*keyEnv)
	if !ok || strings.TrimSpace(raw) == "" {
		return fmt.Errorf("environment variable %s is not set", *keyEnv)
	}
	key, err := crypto.PrivateKeyFromHex(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	return k.save(key, stdout)
}

func runKeysAddress(args []string, stdout io.Writer) error {
	fs := newFlagSet("keys address")
	path := fs.String("keystore", "", "keystore file to unlock")
	passEnv := fs.String("pass-env", config.DefaultPassphraseEnv, "environment variable holding the keystore passphrase")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := required("keystore", *path); err != nil {
		return err
	}
	pass, err := newPassphrase(*passEnv, filepath.Base(*path)).Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*path, pass)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]string{"address": key.Address().Hex()})
}
