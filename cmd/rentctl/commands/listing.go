package commands

import (
	"github.com/spf13/cobra"

	"rentchain/core"
	"rentchain/native/contracts"
)

func listingCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "listing", Short: "Publish and manage property listings"}
	cmd.AddCommand(listingCreateCmd(g), listingUpdateCmd(g), listingDeactivateCmd(g), listingVerifyCmd(g), listingGetCmd(g))
	return cmd
}

func listingCreateCmd(g *globals) *cobra.Command {
	var p core.ListingCreatePayload
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a listing owned by the signer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "property-id", "rent", "deposit", "duration"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodListingCreate, p)
		},
	}
	cmd.Flags().Uint64Var(&p.PropertyID, "property-id", 0, "owner-scoped property number")
	cmd.Flags().Uint64Var(&p.RentAmount, "rent", 0, "rent per payment period")
	cmd.Flags().Uint64Var(&p.DepositAmount, "deposit", 0, "security deposit")
	cmd.Flags().Int64Var(&p.LeaseDuration, "duration", 0, "lease duration in seconds")
	cmd.Flags().StringVar(&p.MetadataURI, "metadata-uri", "", "listing metadata URI")
	return cmd
}

func listingUpdateCmd(g *globals) *cobra.Command {
	var (
		listing  string
		rent     uint64
		deposit  uint64
		duration int64
		status   string
		uri      string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Overwrite the listing fields given as flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "listing"); err != nil {
				return err
			}
			var patch contracts.ListingPatch
			flags := cmd.Flags()
			if flags.Changed("rent") {
				patch.RentAmount = &rent
			}
			if flags.Changed("deposit") {
				patch.DepositAmount = &deposit
			}
			if flags.Changed("duration") {
				patch.LeaseDuration = &duration
			}
			if flags.Changed("status") {
				s, err := contracts.ParseListingStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if flags.Changed("metadata-uri") {
				patch.MetadataURI = &uri
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodListingUpdate, core.ListingUpdatePayload{Listing: listing, Patch: patch})
		},
	}
	cmd.Flags().StringVar(&listing, "listing", "", "listing address")
	cmd.Flags().Uint64Var(&rent, "rent", 0, "new rent amount")
	cmd.Flags().Uint64Var(&deposit, "deposit", 0, "new deposit amount")
	cmd.Flags().Int64Var(&duration, "duration", 0, "new lease duration in seconds")
	cmd.Flags().StringVar(&status, "status", "", "available, rented or deactivated")
	cmd.Flags().StringVar(&uri, "metadata-uri", "", "new metadata URI")
	return cmd
}

func listingDeactivateCmd(g *globals) *cobra.Command {
	var p core.ListingRefPayload
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Withdraw a listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "listing"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodListingDeactivate, p)
		},
	}
	cmd.Flags().StringVar(&p.Listing, "listing", "", "listing address")
	return cmd
}

func listingVerifyCmd(g *globals) *cobra.Command {
	var p core.ListingVerifyPayload
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Record a verification level and document hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(cmd, "listing", "level"); err != nil {
				return err
			}
			return g.submit(cmd.Context(), cmd.OutOrStdout(), core.MethodListingVerify, p)
		},
	}
	cmd.Flags().StringVar(&p.Listing, "listing", "", "listing address")
	cmd.Flags().Uint8Var(&p.Level, "level", 0, "0 none, 1 basic, 2 full")
	cmd.Flags().StringVar(&p.DocumentHash, "document-hash", "", "hash of the supporting documents")
	return cmd
}

func listingGetCmd(g *globals) *cobra.Command {
	var (
		listing    string
		owner      string
		propertyID uint64
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a listing by address or by owner and property id",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			if listing != "" {
				params["address"] = listing
			} else {
				if err := requireFlag(cmd, "owner"); err != nil {
					return err
				}
				params["owner"] = owner
				params["propertyId"] = propertyID
			}
			return g.query(cmd.Context(), cmd.OutOrStdout(), "listing_get", params)
		},
	}
	cmd.Flags().StringVar(&listing, "listing", "", "listing address")
	cmd.Flags().StringVar(&owner, "owner", "", "listing owner")
	cmd.Flags().Uint64Var(&propertyID, "property-id", 0, "owner-scoped property number")
	return cmd
}
