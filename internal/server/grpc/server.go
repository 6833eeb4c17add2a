// Package grpc exposes the loyalty API over gRPC for the admin CLI and
// internal callers. Messages are JSON-encoded (see CodecName).
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type authSvc interface {
	Login(ctx context.Context, identifier, secret, clientIP string) (*services.TokenPair, error)
	AccountIDFromAccessToken(token string) (int64, error)
}

type loyaltySvc interface {
	Summary(ctx context.Context, accountID int64) (*models.Summary, error)
}

type rewardSvc interface {
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
}

type redemptionSvc interface {
	Redeem(ctx context.Context, accountID, rewardID int64) (*models.RedemptionResult, error)
}

type GRPCServer struct {
	address     string
	auth        authSvc
	loyalty     loyaltySvc
	rewards     rewardSvc
	redemptions redemptionSvc
	logger      logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as authSvc, ls loyaltySvc, rs rewardSvc, ds redemptionSvc) (*GRPCServer, error) {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		auth:        as,
		loyalty:     ls,
		rewards:     rs,
		redemptions: ds,
	}, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	// registers services
	srv.RegisterService(&LoyaltyServiceDesc, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
