package server

import (
	"encoding/json"
	"os"

	"github.com/iov-one/escrowd/errors"
)

// GenOptions can parse command-line arguments to
// generate default app_state for the genesis file.
// This is application-specific
type GenOptions func(args []string) (json.RawMessage, error)

// GenesisDoc involves some tendermint-specific structures we don't
// want to parse, so we just grab it into a raw object format,
// so we can add one line.
type GenesisDoc map[string]json.RawMessage

// InitGenesis writes the app_state produced by gen into the genesis file
// created by tendermint. An existing app_state is only replaced when
// force is set.
func InitGenesis(gen GenOptions, genFile string, force bool, args []string) error {
	bz, err := os.ReadFile(genFile)
	if err != nil {
		return errors.Wrapf(errors.ErrNotFound, "genesis file: %s", err)
	}
	var doc GenesisDoc
	if err := json.Unmarshal(bz, &doc); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "genesis file: %s", err)
	}
	if state, ok := doc["app_state"]; ok && !isEmptyJSON(state) && !force {
		return errors.Wrap(errors.ErrDuplicate, "app_state already set")
	}

	options, err := gen(args)
	if err != nil {
		return err
	}
	doc["app_state"] = options
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	return os.WriteFile(genFile, out, 0600)
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "{}", `""`:
		return true
	}
	return false
}
