package wallet

import "errors"

var ErrUnknownBundle = errors.New("wallet: unknown bundle")

// Bundle is a fixed USD/credit top-up tier. Higher tiers carry a credit bonus.
type Bundle struct {
	USD     float64
	Credits int
}

// DefaultBundles is the standard tier table; deployments may override it
// through configuration.
func DefaultBundles() map[string]Bundle {
	return map[string]Bundle{
		"1":  {USD: 1, Credits: 1},
		"2":  {USD: 2, Credits: 2},
		"5":  {USD: 5, Credits: 5},
		"10": {USD: 10, Credits: 10},
		"20": {USD: 20, Credits: 21},
		"50": {USD: 50, Credits: 52},
	}
}

// Bundles is an immutable lookup table loaded once at startup.
type Bundles struct {
	byID map[string]Bundle
}

func NewBundles(table map[string]Bundle) *Bundles {
	byID := make(map[string]Bundle, len(table))
	for id, b := range table {
		byID[id] = b
	}
	return &Bundles{byID: byID}
}

func (b *Bundles) Get(id string) (Bundle, error) {
	bundle, ok := b.byID[id]
	if !ok {
		return Bundle{}, ErrUnknownBundle
	}
	return bundle, nil
}
