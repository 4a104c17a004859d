// Package walleterr normalizes the error shapes wallet providers return.
//
// Providers disagree on where the numeric code lives: on the error itself,
// under a nested "error" object, or under "info.error". Code extraction is
// done once here and every caller works with plain ints.
package walleterr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Well-known EIP-1193 / EIP-3085 codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
)

// ProviderError mirrors a provider error object, including the nested shapes.
type ProviderError struct {
	Code    int            `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Nested  *ProviderError `json:"error,omitempty"`
	Info    *ErrorInfo     `json:"info,omitempty"`
}

// ErrorInfo is the "info" wrapper some providers put around the real error.
type ErrorInfo struct {
	Error *ProviderError `json:"error,omitempty"`
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Nested != nil {
		msg = e.Nested.Message
	}
	if msg == "" && e.Info != nil && e.Info.Error != nil {
		msg = e.Info.Error.Message
	}
	if msg == "" {
		return fmt.Sprintf("wallet provider error (code %d)", e.Code)
	}
	return msg
}

// ErrorCode satisfies rpc.Error.
func (e *ProviderError) ErrorCode() int { return e.Code }

// codes lists codes in shape order: top-level, error.code, info.error.code.
func (e *ProviderError) codes() []int {
	var out []int
	if e.Code != 0 {
		out = append(out, e.Code)
	}
	if e.Nested != nil && e.Nested.Code != 0 {
		out = append(out, e.Nested.Code)
	}
	if e.Info != nil && e.Info.Error != nil && e.Info.Error.Code != 0 {
		out = append(out, e.Info.Error.Code)
	}
	return out
}

// Codes returns every provider code found in err's chain, top-level shape first.
func Codes(err error) []int {
	if err == nil {
		return nil
	}

	var out []int
	var pe *ProviderError
	if errors.As(err, &pe) {
		out = append(out, pe.codes()...)
	}
	var re rpc.Error
	if errors.As(err, &re) && re.ErrorCode() != 0 && (pe == nil || re.ErrorCode() != pe.Code) {
		out = append(out, re.ErrorCode())
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if nested := fromData(de.ErrorData()); nested != nil {
			out = append(out, nested.codes()...)
		}
	}
	return out
}

// ErrorCode returns the code a provider meant to report. Wallet-level codes
// (4000-4999) win over generic JSON-RPC codes that sometimes wrap them.
func ErrorCode(err error) (int, bool) {
	codes := Codes(err)
	if len(codes) == 0 {
		return 0, false
	}
	for _, c := range codes {
		if c >= 4000 && c < 5000 {
			return c, true
		}
	}
	return codes[0], true
}

// HasCode reports whether any of the known shapes carries code.
func HasCode(err error, code int) bool {
	for _, c := range Codes(err) {
		if c == code {
			return true
		}
	}
	return false
}

// IsUnrecognizedChain reports whether the wallet does not know the requested chain.
func IsUnrecognizedChain(err error) bool {
	return HasCode(err, CodeUnrecognizedChain)
}

// IsUserRejection reports whether the user dismissed or denied a wallet prompt.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if HasCode(err, CodeUserRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rejected") || strings.Contains(msg, "denied")
}

// fromData decodes the data attached to a JSON-RPC error into a ProviderError.
func fromData(data interface{}) *ProviderError {
	var raw []byte
	switch v := data.(type) {
	case nil:
		return nil
	case *ProviderError:
		return v
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case jsoniter.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		raw = b
	}

	var pe struct {
		ProviderError
		OriginalError *ProviderError `json:"originalError,omitempty"`
	}
	if err := json.Unmarshal(raw, &pe); err != nil {
		return nil
	}
	out := pe.ProviderError
	if out.Nested == nil && pe.OriginalError != nil {
		out.Nested = pe.OriginalError
	}
	return &out
}
