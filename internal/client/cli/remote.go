package cli

import (
	"fmt"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	gs "github.com/dmitrijs2005/gophrewards/internal/server/grpc"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/metadata"
)

func (a *app) client() (*gs.LoyaltyServiceClient, func(), error) {
	addr, err := a.grpcTarget()
	if err != nil {
		return nil, nil, err
	}
	conn, closer, err := dialGRPC(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return gs.NewLoyaltyServiceClient(conn), func() { closer.Close() }, nil
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := a.client()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := a.rpcContext(cmd)
			defer cancel()
			resp, err := c.Ping(ctx, &gs.PingRequest{})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, resp.Status)
			return nil
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <username-or-email>",
		Short: "Log in as a customer and show their balance and tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := a.secret("Password: ")
			if err != nil {
				return err
			}
			c, closeFn, err := a.client()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := a.rpcContext(cmd)
			defer cancel()

			tokens, err := c.Login(ctx, &gs.LoginRequest{Identifier: args[0], Password: secret})
			if err != nil {
				return err
			}
			ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, tokens.AccessToken)
			resp, err := c.Summary(ctx, &gs.SummaryRequest{})
			if err != nil {
				return err
			}

			s := resp.Summary
			fmt.Fprintf(a.out, "balance:  %d\n", s.Balance)
			fmt.Fprintf(a.out, "lifetime: %d\n", s.LifetimePoints)
			fmt.Fprintf(a.out, "tier:     %s\n", s.Tier)
			fmt.Fprintf(a.out, "redeemed: %d\n", s.Redemptions)
			if s.NextTier != "" {
				fmt.Fprintf(a.out, "next:     %s in %d points (%d%%)\n", s.NextTier, s.PointsToNextTier, s.Progress)
			}
			return nil
		},
	}
}
