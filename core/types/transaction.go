package types

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Transaction is the signed envelope submitted to the node. The payload is the
// JSON encoding of the method's request and is carried verbatim so that every
// signer commits to the exact bytes the node decodes. The nonce belongs to the
// first signer; co-signers sign the same hash.
type Transaction struct {
	ChainID    uint64          `json:"chainId"`
	Method     string          `json:"method"`
	Nonce      uint64          `json:"nonce"`
	Payload    json.RawMessage `json:"payload"`
	Signatures [][]byte        `json:"signatures"`
}

type signingFields struct {
	ChainID uint64
	Method  string
	Nonce   uint64
	Payload []byte
}

// SigningHash returns the keccak256 digest every signer of the transaction
// signs.
func (tx *Transaction) SigningHash() ([32]byte, error) {
	var out [32]byte
	if tx == nil {
		return out, errors.New("nil transaction")
	}
	method := strings.TrimSpace(tx.Method)
	if method == "" {
		return out, errors.New("transaction method required")
	}
	encoded, err := rlp.EncodeToBytes(&signingFields{
		ChainID: tx.ChainID,
		Method:  method,
		Nonce:   tx.Nonce,
		Payload: []byte(tx.Payload),
	})
	if err != nil {
		return out, fmt.Errorf("encode signing fields: %w", err)
	}
	copy(out[:], crypto.Keccak256(encoded))
	return out, nil
}

// Sign appends a signature produced by key over the signing hash.
func (tx *Transaction) Sign(key *ecdsa.PrivateKey) error {
	if key == nil {
		return errors.New("nil signing key")
	}
	hash, err := tx.SigningHash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}
