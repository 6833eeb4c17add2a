package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC codes. Messages never carry the
// underlying cause of an internal fault.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrorRateLimited):
		return status.Error(codes.ResourceExhausted, "too many login attempts")
	case errors.Is(err, common.ErrAccountNotFound), errors.Is(err, common.ErrRewardNotFoundOrInactive):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrNoLoyaltyRecord), errors.Is(err, common.ErrInsufficientPoints):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {

	tokens, err := s.auth.Login(ctx, req.Identifier, req.Password, peerIP(ctx))

	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) Summary(ctx context.Context, req *SummaryRequest) (*SummaryResponse, error) {

	accountID, ok := accountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	sum, err := s.loyalty.Summary(ctx, accountID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &SummaryResponse{Summary: sum}, nil

}

func (s *GRPCServer) ListRewards(ctx context.Context, req *ListRewardsRequest) (*ListRewardsResponse, error) {

	list, err := s.rewards.List(ctx, true)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &ListRewardsResponse{Rewards: list}, nil

}

func (s *GRPCServer) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error) {

	accountID, ok := accountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if req.RewardID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid reward id")
	}

	res, err := s.redemptions.Redeem(ctx, accountID, req.RewardID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "redeemed over grpc", "account_id", accountID, "reward_id", req.RewardID)
	return &RedeemResponse{RedemptionID: res.RedemptionID, Code: res.Code, NewBalance: res.NewBalance}, nil

}

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {

	return &PingResponse{Status: "OK"}, nil

}
