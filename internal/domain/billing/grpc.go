package billing

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	billingpb "github.com/pm/platform/proto/billing"
)

// GRPCServer serves the billing gRPC API.
type GRPCServer struct {
	billingpb.UnimplementedBillingServiceServer
	svc *Service
}

func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// CreateBillingAccount handles the CreateBillingAccount RPC.
func (s *GRPCServer) CreateBillingAccount(ctx context.Context, req *billingpb.BillingRequest) (*billingpb.BillingResponse, error) {
	log.Info().
		Str("patient_id", req.GetPatientId()).
		Str("email", req.GetEmail()).
		Msg("billing account requested")

	a, err := s.svc.CreateAccount(ctx, req.GetPatientId(), req.GetName(), req.GetEmail())
	if err != nil {
		log.Error().Err(err).Str("patient_id", req.GetPatientId()).Msg("billing account creation failed")
		return nil, status.Errorf(codes.Internal, "creating billing account: %v", err)
	}

	return &billingpb.BillingResponse{
		AccountId: a.AccountID,
		Status:    a.Status,
	}, nil
}
