package candymachine

import (
	"regexp"
	"strconv"
)

// ErrorCode - Custom program error code returned by the candy machine
type ErrorCode int

const (
	ErrCodeNotEnoughTokens     ErrorCode = 0x133
	ErrCodeNotEnoughSOL        ErrorCode = 0x134
	ErrCodeInsufficientFunds   ErrorCode = 0x135
	ErrCodeCandyMachineEmpty   ErrorCode = 0x137 // 311
	ErrCodeCandyMachineNotLive ErrorCode = 0x138 // 312
)

// ProgramErrors codes the client reacts to
var ProgramErrors = map[ErrorCode]string{
	ErrCodeNotEnoughTokens:     "NotEnoughTokens - Not enough payment tokens",
	ErrCodeNotEnoughSOL:        "NotEnoughSOL - Not enough SOL to pay for the mint",
	ErrCodeInsufficientFunds:   "InsufficientFunds - Insufficient funds to mint",
	ErrCodeCandyMachineEmpty:   "CandyMachineEmpty - Candy machine is sold out",
	ErrCodeCandyMachineNotLive: "CandyMachineNotLive - Minting period hasn't started yet",
}

func (c ErrorCode) String() string {
	if msg, ok := ProgramErrors[c]; ok {
		return msg
	}
	return "custom program error 0x" + strconv.FormatInt(int64(c), 16)
}

// IsSoldOut reports the codes the program uses when no item is left.
func (c ErrorCode) IsSoldOut() bool {
	return c == ErrCodeCandyMachineEmpty
}

func (c ErrorCode) IsNotLive() bool {
	return c == ErrCodeCandyMachineNotLive
}

func (c ErrorCode) IsInsufficientFunds() bool {
	return c == ErrCodeInsufficientFunds || c == ErrCodeNotEnoughSOL || c == ErrCodeNotEnoughTokens
}

// ErrorCodeFromTransactionError extracts the custom code from a decoded
// transaction error value, e.g. {"InstructionError": [0, {"Custom": 311}]}.
func ErrorCodeFromTransactionError(txErr interface{}) (ErrorCode, bool) {
	m, ok := txErr.(map[string]interface{})
	if !ok {
		return 0, false
	}
	// RPC error data wraps the transaction error under "err"
	if inner, ok := m["err"]; ok {
		return ErrorCodeFromTransactionError(inner)
	}
	ie, ok := m["InstructionError"].([]interface{})
	if !ok || len(ie) < 2 {
		return 0, false
	}
	custom, ok := ie[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := custom["Custom"].(type) {
	case float64:
		return ErrorCode(int(v)), true
	case int:
		return ErrorCode(v), true
	case int64:
		return ErrorCode(v), true
	case uint64:
		return ErrorCode(v), true
	case string:
		if code, err := strconv.Atoi(v); err == nil {
			return ErrorCode(code), true
		}
	}
	return 0, false
}

var customErrorHex = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// ErrorCodeFromMessage - Hex format in preflight messages: custom program error: 0x137
func ErrorCodeFromMessage(msg string) (ErrorCode, bool) {
	matches := customErrorHex.FindStringSubmatch(msg)
	if len(matches) < 2 {
		return 0, false
	}
	code, err := strconv.ParseInt(matches[1], 16, 64)
	if err != nil {
		return 0, false
	}
	return ErrorCode(code), true
}
