package chain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Kind classifies chain read failures so callers never match on error text.
type Kind int

const (
	KindTransient Kind = iota
	KindAccountNotFound
	KindEndpointUnreachable
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAccountNotFound:
		return "account_not_found"
	case KindEndpointUnreachable:
		return "endpoint_unreachable"
	case KindDecode:
		return "decode"
	default:
		return "transient"
	}
}

// invalid params: returned by getTokenAccountBalance for a missing account
const rpcCodeInvalidParams = -32602

// Error - chain interaction failure with its kind
type Error struct {
	Kind    Kind
	Op      string
	Account string
	Err     error
}

func (e *Error) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Account, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a chain error, KindTransient for anything else.
func KindOf(err error) Kind {
	var chainErr *Error
	if errors.As(err, &chainErr) {
		return chainErr.Kind
	}
	return KindTransient
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindAccountNotFound
}

// IsConfiguration reports failures that are fatal for the session.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	return k == KindAccountNotFound || k == KindEndpointUnreachable
}

func wrap(op string, account string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Account: account, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, rpc.ErrNotFound) {
		return KindAccountNotFound
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == rpcCodeInvalidParams && strings.Contains(rpcErr.Message, "could not find account") {
			return KindAccountNotFound
		}
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindEndpointUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindEndpointUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindEndpointUnreachable
	}
	return KindTransient
}

// RPCErrorData returns the data payload of a JSON-RPC error (simulation
// results for preflight failures), nil when err is not an RPC error.
func RPCErrorData(err error) interface{} {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Data
	}
	return nil
}
