package cli

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	gs "github.com/dmitrijs2005/gophrewards/internal/server/grpc"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeLoyaltyServer struct {
	summary *models.Summary
}

func (f *fakeLoyaltyServer) Login(_ context.Context, in *gs.LoginRequest) (*gs.LoginResponse, error) {
	if in.Identifier != "alice" || in.Password != "pw" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &gs.LoginResponse{AccessToken: "token-1", RefreshToken: "r"}, nil
}

func (f *fakeLoyaltyServer) Summary(ctx context.Context, _ *gs.SummaryRequest) (*gs.SummaryResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) != 1 || v[0] != "token-1" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &gs.SummaryResponse{Summary: f.summary}, nil
}

func (f *fakeLoyaltyServer) ListRewards(context.Context, *gs.ListRewardsRequest) (*gs.ListRewardsResponse, error) {
	return &gs.ListRewardsResponse{}, nil
}

func (f *fakeLoyaltyServer) Redeem(context.Context, *gs.RedeemRequest) (*gs.RedeemResponse, error) {
	return nil, status.Error(codes.Unimplemented, "not used")
}

func (f *fakeLoyaltyServer) Ping(context.Context, *gs.PingRequest) (*gs.PingResponse, error) {
	return &gs.PingResponse{Status: "OK"}, nil
}

// serveFake points dialGRPC at an in-memory server backed by srv.
func serveFake(t *testing.T, srv gs.LoyaltyServiceServer) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	s.RegisterService(&gs.LoyaltyServiceDesc, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	orig := dialGRPC
	t.Cleanup(func() { dialGRPC = orig })
	dialGRPC = func(string) (grpc.ClientConnInterface, io.Closer, error) {
		conn, err := grpc.NewClient("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, nil, err
		}
		return conn, conn, nil
	}
}

func TestPing(t *testing.T) {
	serveFake(t, &fakeLoyaltyServer{})

	out, err := run(t, "", "ping", "--grpc-addr", "bufnet")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
}

func TestBalance(t *testing.T) {
	serveFake(t, &fakeLoyaltyServer{summary: &models.Summary{
		AccountID: 5, Balance: 700, LifetimePoints: 6200,
		Tier: models.TierGold, NextTier: models.TierPlatinum, PointsToNextTier: 3800, Progress: 24,
		Redemptions: 3,
	}})

	out, err := run(t, "pw\n", "balance", "--grpc-addr", "bufnet", "--password-stdin", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "balance:  700")
	assert.Contains(t, out, "lifetime: 6200")
	assert.Contains(t, out, "tier:     gold")
	assert.Contains(t, out, "redeemed: 3")
	assert.Contains(t, out, "next:     platinum in 3800 points (24%)")
}

func TestBalance_TopTierHasNoNextLine(t *testing.T) {
	serveFake(t, &fakeLoyaltyServer{summary: &models.Summary{Balance: 1, LifetimePoints: 12000, Tier: models.TierPlatinum}})

	out, err := run(t, "pw\n", "balance", "--grpc-addr", "bufnet", "--password-stdin", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "tier:     platinum")
	assert.NotContains(t, out, "next:")
}

func TestBalance_WrongPassword(t *testing.T) {
	serveFake(t, &fakeLoyaltyServer{})

	_, err := run(t, "nope\n", "balance", "--grpc-addr", "bufnet", "--password-stdin", "alice")
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
