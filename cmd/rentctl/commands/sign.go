package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"rentchain/core/types"
	"rentchain/crypto"
)

type chainInfo struct {
	ChainID uint64 `json:"chainId"`
}

type accountInfo struct {
	Nonce uint64 `json:"nonce"`
}

func (g *globals) loadSigner() (*crypto.PrivateKey, error) {
	pass, err := g.pass.Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(g.keystore, pass)
}

func (g *globals) loadCosigner() (*crypto.PrivateKey, error) {
	if g.cosignerKeystore == "" {
		return nil, errors.New("--cosigner-keystore is required")
	}
	pass, err := g.cosignerPass.Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(g.cosignerKeystore, pass)
}

// submit signs payload for method with the signer (and any co-signers, in
// order) and submits it, printing the receipt.
func (g *globals) submit(ctx context.Context, w io.Writer, method string, payload interface{}, cosigners ...*crypto.PrivateKey) error {
	signer, err := g.loadSigner()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var info chainInfo
	if err := g.client.call(ctx, "chain_info", nil, &info); err != nil {
		return fmt.Errorf("chain info: %w", err)
	}
	var account accountInfo
	addr := crypto.MustEncodeAddress(signer.PubKey().Address())
	if err := g.client.call(ctx, "bank_balance", map[string]string{"address": addr}, &account); err != nil {
		return fmt.Errorf("load nonce: %w", err)
	}

	tx := &types.Transaction{ChainID: info.ChainID, Method: method, Nonce: account.Nonce, Payload: raw}
	for _, key := range append([]*crypto.PrivateKey{signer}, cosigners...) {
		if err := tx.Sign(key.PrivateKey); err != nil {
			return err
		}
	}
	var receipt json.RawMessage
	if err := g.client.call(ctx, "tx_submit", tx, &receipt); err != nil {
		return err
	}
	return printJSON(w, receipt)
}

func (g *globals) query(ctx context.Context, w io.Writer, method string, params interface{}) error {
	var out json.RawMessage
	if err := g.client.call(ctx, method, params, &out); err != nil {
		return err
	}
	return printJSON(w, out)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
