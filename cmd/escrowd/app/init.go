package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
)

// GenesisState is the app_state section of the genesis file.
type GenesisState struct {
	Cash   []cash.GenesisAccount  `json:"cash"`
	Escrow []escrow.GenesisEscrow `json:"escrow"`
}

// GenInitOptions produces the app_state for a development chain. Every
// argument is an "address:balance" pair seeding one wallet. The address
// may carry its own format prefix, for example "bech32:esc1...:100".
func GenInitOptions(args []string) (json.RawMessage, error) {
	state := GenesisState{
		Cash:   []cash.GenesisAccount{},
		Escrow: []escrow.GenesisEscrow{},
	}
	for _, arg := range args {
		cut := strings.LastIndex(arg, ":")
		if cut < 0 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "want address:balance, got %q", arg)
		}
		addr, err := escrowd.ParseAddress(arg[:cut])
		if err != nil {
			return nil, errors.Wrapf(err, "account %q", arg)
		}
		balance, err := strconv.ParseUint(arg[cut+1:], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidAmount, "account %q: %s", arg, err)
		}
		state.Cash = append(state.Cash, cash.GenesisAccount{Address: addr, Balance: balance})
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	return raw, nil
}
