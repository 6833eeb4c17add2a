package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "gophrewards.LoyaltyService"

const (
	LoginFullMethod       = "/" + ServiceName + "/Login"
	SummaryFullMethod     = "/" + ServiceName + "/Summary"
	ListRewardsFullMethod = "/" + ServiceName + "/ListRewards"
	RedeemFullMethod      = "/" + ServiceName + "/Redeem"
	PingFullMethod        = "/" + ServiceName + "/Ping"
)

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SummaryRequest struct{}

type SummaryResponse struct {
	Summary *models.Summary `json:"summary"`
}

type ListRewardsRequest struct{}

type ListRewardsResponse struct {
	Rewards []models.Reward `json:"rewards"`
}

type RedeemRequest struct {
	RewardID int64 `json:"reward_id"`
}

type RedeemResponse struct {
	RedemptionID string `json:"redemption_id"`
	Code         string `json:"code"`
	NewBalance   int64  `json:"new_balance"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// LoyaltyServiceServer is the server API for gophrewards.LoyaltyService.
type LoyaltyServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Summary(context.Context, *SummaryRequest) (*SummaryResponse, error)
	ListRewards(context.Context, *ListRewardsRequest) (*ListRewardsResponse, error)
	Redeem(context.Context, *RedeemRequest) (*RedeemResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(LoyaltyServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(LoyaltyServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LoyaltyServiceDesc describes gophrewards.LoyaltyService for grpc.Server.RegisterService.
var LoyaltyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LoyaltyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(LoginFullMethod, LoyaltyServiceServer.Login)},
		{MethodName: "Summary", Handler: unaryHandler(SummaryFullMethod, LoyaltyServiceServer.Summary)},
		{MethodName: "ListRewards", Handler: unaryHandler(ListRewardsFullMethod, LoyaltyServiceServer.ListRewards)},
		{MethodName: "Redeem", Handler: unaryHandler(RedeemFullMethod, LoyaltyServiceServer.Redeem)},
		{MethodName: "Ping", Handler: unaryHandler(PingFullMethod, LoyaltyServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophrewards/loyalty",
}

// LoyaltyServiceClient calls gophrewards.LoyaltyService using the JSON codec.
type LoyaltyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLoyaltyServiceClient(cc grpc.ClientConnInterface) *LoyaltyServiceClient {
	return &LoyaltyServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LoyaltyServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, LoginFullMethod, in, opts)
}

func (c *LoyaltyServiceClient) Summary(ctx context.Context, in *SummaryRequest, opts ...grpc.CallOption) (*SummaryResponse, error) {
	return invoke[SummaryResponse](ctx, c.cc, SummaryFullMethod, in, opts)
}

func (c *LoyaltyServiceClient) ListRewards(ctx context.Context, in *ListRewardsRequest, opts ...grpc.CallOption) (*ListRewardsResponse, error) {
	return invoke[ListRewardsResponse](ctx, c.cc, ListRewardsFullMethod, in, opts)
}

func (c *LoyaltyServiceClient) Redeem(ctx context.Context, in *RedeemRequest, opts ...grpc.CallOption) (*RedeemResponse, error) {
	return invoke[RedeemResponse](ctx, c.cc, RedeemFullMethod, in, opts)
}

func (c *LoyaltyServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingFullMethod, in, opts)
}
