// Package khqr builds individual-account KHQR payment payloads: EMVCo
// tag-length-value strings with a CRC-16/CCITT-FALSE checksum, as consumed
// by Bakong-enabled banking apps. The payload's hex md5 doubles as the
// transaction reference the Bakong API resolves status lookups by.
package khqr

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidMerchant = errors.New("khqr: invalid merchant info")

// Merchant identifies the receiving individual account.
type Merchant struct {
	AccountID string // Bakong account id, e.g. "name@bank"
	Name      string
	City      string
	Mobile    string
	Label     string // store label shown in the payer's app
}

// maxAccountIDLen is the Bakong bound for the tag-29 account value; it
// also keeps every emitted TLV length within two digits.
const maxAccountIDLen = 32

func (m Merchant) validate() error {
	switch {
	case !strings.Contains(m.AccountID, "@"):
		return fmt.Errorf("%w: account id %q", ErrInvalidMerchant, m.AccountID)
	case len(m.AccountID) > maxAccountIDLen:
		return fmt.Errorf("%w: account id exceeds %d characters", ErrInvalidMerchant, maxAccountIDLen)
	case m.Name == "":
		return fmt.Errorf("%w: merchant name is empty", ErrInvalidMerchant)
	case m.City == "":
		return fmt.Errorf("%w: merchant city is empty", ErrInvalidMerchant)
	}
	return nil
}

const (
	tagPayloadFormat     = "00"
	tagPointOfInitiation = "01"
	tagAccountTemplate   = "29"
	tagMCC               = "52"
	tagCurrency          = "53"
	tagAmount            = "54"
	tagCountry           = "58"
	tagMerchantName      = "59"
	tagMerchantCity      = "60"
	tagAdditionalData    = "62"
	tagCRC               = "63"

	subAccountID  = "00"
	subMobile     = "02"
	subStoreLabel = "03"
	subPurpose    = "08"

	currencyUSD = "840"
)

// Individual builds a dynamic USD payment payload for the given merchant
// and amount.
func Individual(m Merchant, amount decimal.Decimal) (string, error) {
	if err := m.validate(); err != nil {
		return "", err
	}
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: negative amount %s", ErrInvalidMerchant, amount)
	}

	var b strings.Builder
	b.WriteString(field(tagPayloadFormat, "01"))
	b.WriteString(field(tagPointOfInitiation, "12")) // dynamic: amount embedded
	b.WriteString(field(tagAccountTemplate, field(subAccountID, m.AccountID)))
	b.WriteString(field(tagMCC, "5999"))
	b.WriteString(field(tagCurrency, currencyUSD))
	b.WriteString(field(tagAmount, amount.StringFixed(2)))
	b.WriteString(field(tagCountry, "KH"))
	b.WriteString(field(tagMerchantName, clip(m.Name, 25)))
	b.WriteString(field(tagMerchantCity, clip(m.City, 15)))

	var extra strings.Builder
	if m.Mobile != "" {
		extra.WriteString(field(subMobile, m.Mobile))
	}
	if m.Label != "" {
		extra.WriteString(field(subStoreLabel, clip(m.Label, 25)))
	}
	extra.WriteString(field(subPurpose, "Payment"))
	b.WriteString(field(tagAdditionalData, extra.String()))

	// CRC covers everything up to and including its own tag+length.
	payload := b.String() + tagCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16(payload)), nil
}

// TxRef returns the hex md5 of a payload, the reference the Bakong API
// keys transaction lookups by.
func TxRef(payload string) string {
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func field(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// crc16 is CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
