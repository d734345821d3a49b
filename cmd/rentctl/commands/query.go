package commands

import (
	"github.com/spf13/cobra"
)

func balanceCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the balance and next nonce of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.query(cmd.Context(), cmd.OutOrStdout(), "bank_balance", map[string]string{"address": args[0]})
		},
	}
}

func eventsCmd(g *globals) *cobra.Command {
	var params struct {
		Type    string `json:"type,omitempty"`
		Address string `json:"address,omitempty"`
		After   uint64 `json:"after,omitempty"`
		Limit   int    `json:"limit,omitempty"`
	}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List indexed events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.query(cmd.Context(), cmd.OutOrStdout(), "events_list", params)
		},
	}
	cmd.Flags().StringVar(&params.Type, "type", "", "event type, e.g. escrow.released")
	cmd.Flags().StringVar(&params.Address, "address", "", "listing, lease or escrow address")
	cmd.Flags().Uint64Var(&params.After, "after", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum number of events")
	return cmd
}

func infoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the chain id, component identities and transaction methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.query(cmd.Context(), cmd.OutOrStdout(), "chain_info", nil)
		},
	}
}
