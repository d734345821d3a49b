package commands

import (
	"github.com/spf13/cobra"

	"rentchain/core"
)

func escrowCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "escrow", Short: "Fund and release security deposits"}
	cmd.AddCommand(escrowDepositCmd(g), escrowReleaseTenantCmd(g), escrowReleaseLandlordCmd(g), escrowDeductCmd(g), escrowGetCmd(g))
	return cmd
}

func escrowDepositCmd(g *globals) *cobra.Command {
	var p core.EscrowDepositPayload
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit the security deposit for a lease (tenant)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease", "landlord", "amount"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodEscrowDeposit, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	cmd.Flags().StringVar(&p.Landlord, "landlord", "", "landlord address")
	cmd.Flags().Uint64Var(&p.Amount, "amount", 0, "deposit amount")
	return cmd
}

func escrowReleaseTenantCmd(g *globals) *cobra.Command {
	var p core.EscrowReleasePayload
	cmd := &cobra.Command{
		Use:   "release-tenant",
		Short: "Return the full deposit to the tenant (landlord)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodEscrowReleaseTenant, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	return cmd
}

func escrowReleaseLandlordCmd(g *globals) *cobra.Command {
	var p core.EscrowReleaseLandlordPayload
	cmd := &cobra.Command{
		Use:   "release-landlord",
		Short: "Pay --amount to the landlord and the remainder to the tenant (landlord)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease", "amount"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodEscrowReleaseLandlord, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	cmd.Flags().Uint64Var(&p.Amount, "amount", 0, "amount released to the landlord")
	return cmd
}

func escrowDeductCmd(g *globals) *cobra.Command {
	var p core.EscrowDeductPayload
	cmd := &cobra.Command{
		Use:   "deduct",
		Short: "Split the deposit between landlord and tenant with a reason (landlord)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease", "amount", "reason"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodEscrowDeduct, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	cmd.Flags().Uint64Var(&p.LandlordAmount, "amount", 0, "amount kept by the landlord")
	cmd.Flags().StringVar(&p.Reason, "reason", "", "deduction reason (max 500 characters)")
	return cmd
}

func escrowGetCmd(g *globals) *cobra.Command {
	var lease string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the escrow held for a lease",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease"); err != nil {
				return err
			}
			return g.query(cmd.Context(), cmd.OutOrStdout(), "escrow_get", map[string]string{"lease": lease})
		},
	}
	cmd.Flags().StringVar(&lease, "lease", "", "lease address")
	return cmd
}
