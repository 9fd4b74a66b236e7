package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/domain"
)

const (
	serviceName  = "craftsmart.escrow.v1.EscrowInternalService"
	apiKeyHeader = "x-internal-key"
)

type EscrowInternalService interface {
	GetJobEscrow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPlatformSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type EscrowInternalServer struct {
	service *application.Service
}

func NewEscrowInternalServer(service *application.Service) *EscrowInternalServer {
	return &EscrowInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc EscrowInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*EscrowInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetJobEscrow",
				Handler:    getJobEscrowHandler(svc),
			},
			{
				MethodName: "GetPlatformSummary",
				Handler:    getPlatformSummaryHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/escrow/v1/escrow_internal.proto",
	}, svc)
}

func (s *EscrowInternalServer) GetJobEscrow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jobID := req.GetFields()["job_id"].GetStringValue()
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing job_id")
	}
	item, funded, err := s.service.GetJobEscrow(ctx, jobID)
	if err != nil {
		return nil, toStatus(err)
	}
	payload := map[string]any{
		"job_id":         item.Job.JobID,
		"job_status":     string(item.Job.Status),
		"employer_id":    item.Job.EmployerID,
		"craftsman_id":   item.Job.CraftsmanID,
		"budget":         item.Job.Budget,
		"has_payment":    funded,
		"funds_held":     funded && item.Transaction.HoldsFunds(),
		"updated_at":     item.Job.UpdatedAt.UTC().Format(time.RFC3339),
		"transaction_id": "",
	}
	if funded {
		payload["transaction_id"] = item.Transaction.TransactionID
		payload["transaction_status"] = string(item.Transaction.Status)
		payload["total_amount"] = item.Transaction.TotalAmount
		payload["commission_amount"] = item.Transaction.CommissionAmount
		payload["disbursement_amount"] = item.Transaction.DisbursementAmount
		payload["currency"] = item.Transaction.Currency
	}
	resp, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *EscrowInternalServer) GetPlatformSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.service.InternalPlatformSummary(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"total_platform_fees":    summary.TotalPlatformFees,
		"withdrawn":              summary.Withdrawn,
		"available_for_withdraw": summary.AvailableForWithdraw,
		"currency":               summary.Currency,
		"calculated_at":          summary.CalculatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// KeyVerifier checks the shared key internal callers present.
type KeyVerifier interface {
	Enabled() bool
	Verify(key string) error
}

// APIKeyInterceptor rejects calls without a valid x-internal-key. Health checks stay open.
func APIKeyInterceptor(verifier KeyVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if verifier == nil || !verifier.Enabled() || info.FullMethod == "/grpc.health.v1.Health/Check" {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		keys := md.Get(apiKeyHeader)
		if len(keys) == 0 || verifier.Verify(keys[0]) != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid internal key")
		}
		return handler(ctx, req)
	}
}

func getJobEscrowHandler(svc EscrowInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetJobEscrow(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/GetJobEscrow",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetJobEscrow(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPlatformSummaryHandler(svc EscrowInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPlatformSummary(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/GetPlatformSummary",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPlatformSummary(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
