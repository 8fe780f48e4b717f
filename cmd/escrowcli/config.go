package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
)

// Config holds the client settings read from the environment.
type Config struct {
	Node string `env:"ESCROWCLI_NODE" envDefault:"http://localhost:26657"`
	// ChainID is asked from the node when empty.
	ChainID string `env:"ESCROWCLI_CHAIN_ID"`
	Key     string `env:"ESCROWCLI_KEY"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Key: filepath.Join(os.ExpandEnv("$HOME"), ".escrowcli", "key.json"),
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrapf(errors.ErrInvalidInput, "parse env: %s", err)
	}
	return cfg, nil
}

// keyFile is the on disk format of the signing key.
type keyFile struct {
	PrivKey *crypto.PrivateKey `json:"priv_key"`
	PubKey  *crypto.PublicKey  `json:"pub_key"`
}

func saveKey(path string, key *crypto.PrivateKey, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Wrapf(errors.ErrDuplicate, "key file %s exists", path)
	}
	raw, err := json.MarshalIndent(keyFile{PrivKey: key, PubKey: key.PublicKey()}, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	return os.WriteFile(path, raw, 0600)
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "key file: %s", err)
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "key file %s: %s", path, err)
	}
	if kf.PrivKey.PublicKey().Address() == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "key file %s: no private key", path)
	}
	return kf.PrivKey, nil
}
