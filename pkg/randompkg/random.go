// Package randompkg provides functionality for generating random test items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max.
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min+1)
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := int64(len(alphabet))

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Username generates a random username.
func Username() string {
	return String(8)
}

// MoneyAmountBetween generates a random amount of money between min and max with 4 decimals.
func MoneyAmountBetween(min, max int64) decimal.Decimal {
	units := IntBetween(min*10_000, max*10_000)
	return decimal.New(units, -4)
}

// IdempotencyKey generates a random idempotency key.
func IdempotencyKey() string {
	return fmt.Sprintf("key-%s", String(16))
}
