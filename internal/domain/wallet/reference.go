package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedReference = errors.New("wallet: malformed order reference")

// Reference is the order reference embedded in provider metadata:
// wallet_<username>_<bundleId>_<usdAmount>. Usernames may themselves contain
// underscores, so the trailing two fields are split off from the right.
type Reference struct {
	Username string
	BundleID string
	USD      float64
}

func (r Reference) String() string {
	return fmt.Sprintf("wallet_%s_%s_%s", r.Username, r.BundleID, strconv.FormatFloat(r.USD, 'f', -1, 64))
}

func ParseReference(raw string) (Reference, error) {
	rest, ok := strings.CutPrefix(raw, "wallet_")
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, raw)
	}

	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, raw)
	}
	usdStr := rest[i+1:]
	rest = rest[:i]

	j := strings.LastIndexByte(rest, '_')
	if j <= 0 {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, raw)
	}
	bundleID := rest[j+1:]
	username := rest[:j]

	usd, err := strconv.ParseFloat(usdStr, 64)
	if err != nil || usd <= 0 || bundleID == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, raw)
	}

	return Reference{Username: username, BundleID: bundleID, USD: usd}, nil
}
