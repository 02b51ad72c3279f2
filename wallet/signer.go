package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// KeypairSigner - Local keypair standing in for the user's wallet.
// Reference/example and TESTING PURPOSE ONLY, browser wallets sign in production
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(key solana.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

// LoadKeypair - Read a solana-keygen JSON keypair file
func LoadKeypair(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewKeypairSigner(key), nil
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransactions adds the wallet signature to every transaction
func (s *KeypairSigner) SignTransactions(ctx context.Context, txs ...*solana.Transaction) error {
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := PartialSign(tx, s.key); err != nil {
			return fmt.Errorf("failed to sign transaction %d: %w", i, err)
		}
	}
	return nil
}

// PartialSign - Sign for the given keys only, leaving other signer slots as they are
func PartialSign(tx *solana.Transaction, keys ...solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures but has %d accounts", required, len(tx.Message.AccountKeys))
	}
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}

	for _, key := range keys {
		idx := signerIndex(tx, key.PublicKey(), required)
		if idx < 0 {
			return fmt.Errorf("%s is not a required signer", key.PublicKey())
		}
		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("failed to sign: %w", err)
		}
		tx.Signatures[idx] = sig
	}
	return nil
}

// IsFullySigned reports whether every required signer slot is filled
func IsFullySigned(tx *solana.Transaction) bool {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		return false
	}
	for _, sig := range tx.Signatures[:required] {
		if sig == (solana.Signature{}) {
			return false
		}
	}
	return true
}

func signerIndex(tx *solana.Transaction, key solana.PublicKey, required int) int {
	for i := 0; i < required; i++ {
		if tx.Message.AccountKeys[i].Equals(key) {
			return i
		}
	}
	return -1
}

// IsRequiredSigner reports whether key must sign tx
func IsRequiredSigner(tx *solana.Transaction, key solana.PublicKey) bool {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return false
	}
	return signerIndex(tx, key, required) >= 0
}
