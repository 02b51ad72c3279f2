package mint

import (
	"strings"

	"candymint/candymachine"
	"candymint/chain"
	"candymint/confirmation"
)

func codeReason(code candymachine.ErrorCode) Reason {
	switch {
	case code.IsSoldOut():
		return ReasonSoldOut
	case code.IsNotLive():
		return ReasonNotLive
	case code.IsInsufficientFunds():
		return ReasonInsufficientFunds
	default:
		return ReasonProgramError
	}
}

// classifySendError maps a submission failure. Preflight rejections carry the
// simulated transaction error in the RPC error data.
func classifySendError(err error) Reason {
	if data := chain.RPCErrorData(err); data != nil {
		if code, ok := candymachine.ErrorCodeFromTransactionError(data); ok {
			return codeReason(code)
		}
		if logsMention(data, "insufficient funds", "insufficient lamports") {
			return ReasonInsufficientFunds
		}
	}
	if code, ok := candymachine.ErrorCodeFromMessage(err.Error()); ok {
		return codeReason(code)
	}
	return ReasonDropped
}

func resultReason(res confirmation.Result) Reason {
	switch res.Status {
	case confirmation.StatusConfirmed:
		return ReasonNone
	case confirmation.StatusFailed:
		if res.HasCode {
			return codeReason(res.Code)
		}
		return ReasonProgramError
	default:
		return ReasonTimeout
	}
}

func logsMention(data interface{}, needles ...string) bool {
	m, ok := data.(map[string]interface{})
	if !ok {
		return false
	}
	logs, ok := m["logs"].([]interface{})
	if !ok {
		return false
	}
	for _, l := range logs {
		line, ok := l.(string)
		if !ok {
			continue
		}
		line = strings.ToLower(line)
		for _, n := range needles {
			if strings.Contains(line, n) {
				return true
			}
		}
	}
	return false
}
