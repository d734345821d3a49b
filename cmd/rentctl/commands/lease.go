package commands

import (
	"github.com/spf13/cobra"

	"rentchain/core"
	"rentchain/crypto"
)

func leaseCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "lease", Short: "Sign and manage leases"}
	cmd.AddCommand(leaseCreateCmd(g), leaseRefCmd(g, "pay", "Pay the next rent instalment (tenant)", core.MethodLeasePay),
		leaseRefCmd(g, "end", "End an active lease (landlord)", core.MethodLeaseEnd), leaseDisputeCmd(g), leaseGetCmd(g))
	return cmd
}

func leaseCreateCmd(g *globals) *cobra.Command {
	var p core.LeaseCreatePayload
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lease signed by the tenant (--keystore) and landlord (--cosigner-keystore)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "listing", "rent", "deposit", "duration"); err != nil {
				return err
			}
			tenant, err := g.loadSigner()
			if err != nil {
				return err
			}
			landlord, err := g.loadCosigner()
			if err != nil {
				return err
			}
			p.Tenant = crypto.MustEncodeAddress(tenant.PubKey().Address())
			p.Landlord = crypto.MustEncodeAddress(landlord.PubKey().Address())
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodLeaseCreate, p, landlord)
		},
	}
	cmd.Flags().StringVar(&p.Listing, "listing", "", "listing address")
	cmd.Flags().Uint64Var(&p.RentAmount, "rent", 0, "rent per payment period")
	cmd.Flags().Uint64Var(&p.DepositAmount, "deposit", 0, "security deposit")
	cmd.Flags().Int64Var(&p.LeaseDuration, "duration", 0, "lease duration in seconds")
	return cmd
}

func leaseRefCmd(g *globals, use, short, method string) *cobra.Command {
	var p core.LeaseRefPayload
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), method, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	return cmd
}

func leaseDisputeCmd(g *globals) *cobra.Command {
	var p core.LeaseDisputePayload
	cmd := &cobra.Command{
		Use:   "dispute",
		Short: "Flag a dispute on an active lease",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "lease", "reason"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodLeaseDispute, p)
		},
	}
	cmd.Flags().StringVar(&p.Lease, "lease", "", "lease address")
	cmd.Flags().StringVar(&p.Reason, "reason", "", "dispute reason (max 500 characters)")
	return cmd
}

func leaseGetCmd(g *globals) *cobra.Command {
	var lease, listing, tenant string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a lease by address or by listing and tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]string{}
			if lease != "" {
				params["address"] = lease
			} else {
				if err := requireFlag(cmd, "listing", "tenant"); err != nil {
					return err
				}
				params["listing"] = listing
				params["tenant"] = tenant
			}
			return g.query(cmd.Context(), cmd.OutOrStdout(), "lease_get", params)
		},
	}
	cmd.Flags().StringVar(&lease, "lease", "", "lease address")
	cmd.Flags().StringVar(&listing, "listing", "", "listing address")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant address")
	return cmd
}
