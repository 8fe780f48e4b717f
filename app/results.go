package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
)

// ResultSet holds the keys or the values returned by a query. Keys and
// values are sent as two sets of the same length.
type ResultSet struct {
	Results [][]byte `json:"results"`
}

func (r *ResultSet) Marshal() ([]byte, error) {
	return codec.Marshal(r)
}

func (r *ResultSet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, r)
}

// ResultsFromKeys returns a ResultSet of all keys
// given a set of models
func ResultsFromKeys(models []escrowd.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Key
	}
	return &ResultSet{Results: res}
}

// ResultsFromValues returns a ResultSet of all values
// given a set of models
func ResultsFromValues(models []escrowd.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Value
	}
	return &ResultSet{Results: res}
}

// JoinResults inverts ResultsFromKeys and ResultsFromValues
// and makes then a consistent whole again
func JoinResults(keys, values *ResultSet) ([]escrowd.Model, error) {
	kref, vref := keys.Results, values.Results
	if len(kref) != len(vref) {
		return nil, errors.Wrap(errors.ErrInvalidState, "mismatched result set size")
	}
	mods := make([]escrowd.Model, len(kref))
	for i := range mods {
		mods[i] = escrowd.Pair(kref[i], vref[i])
	}
	return mods, nil
}

// UnmarshalOneResult will parse a resultset, and
// it if is not empty, unmarshal the first result into o
func UnmarshalOneResult(bz []byte, o escrowd.Persistent) error {
	var res ResultSet
	if err := res.Unmarshal(bz); err != nil {
		return err
	}
	if len(res.Results) == 0 {
		return errors.Wrap(errors.ErrNotFound, "empty result set")
	}
	return o.Unmarshal(res.Results[0])
}
