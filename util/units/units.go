// SPDX-License-Identifier: Apache-2.0

// Package units converts between ether amounts written as decimals and wei.
package units

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethapp-go/ethapp-api-go/util/errp"
)

const weiDecimals = 18

var decimalContext = apd.BaseContext.WithPrecision(100)

// EtherToWei converts a decimal ether amount such as "1.22" to wei, exactly.
func EtherToWei(amount string) (*big.Int, error) {
	ether, _, err := apd.NewFromString(amount)
	if err != nil {
		return nil, errp.WithMessagef(errp.WithStack(err), "invalid amount %q", amount)
	}
	if ether.Form != apd.Finite || ether.Negative {
		return nil, errp.Newf("invalid amount %q", amount)
	}
	var wei, integral apd.Decimal
	condition, err := decimalContext.Mul(&wei, ether, apd.New(1, weiDecimals))
	if err != nil {
		return nil, errp.WithStack(err)
	}
	if condition.Rounded() {
		return nil, errp.Newf("amount %q has too many digits", amount)
	}
	condition, err = decimalContext.RoundToIntegralExact(&integral, &wei)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	if condition.Inexact() {
		return nil, errp.Newf("amount %q has more than %d decimals", amount, weiDecimals)
	}
	result, ok := new(big.Int).SetString(integral.Text('f'), 10)
	if !ok {
		return nil, errp.Newf("could not convert %q", amount)
	}
	return result, nil
}

// FormatEther formats a wei amount in ether, without trailing zeros.
func FormatEther(wei *big.Int) string {
	ether := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(wei), -weiDecimals)
	var reduced apd.Decimal
	reduced.Reduce(ether)
	return reduced.Text('f')
}
