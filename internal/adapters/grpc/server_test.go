package grpc_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/craftsmart/escrow-service/internal/adapters/grpc"
	"github.com/craftsmart/escrow-service/internal/adapters/memory"
	"github.com/craftsmart/escrow-service/internal/adapters/security"
	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/domain"
)

func startServer(t *testing.T, keyHash string) (*grpc.ClientConn, *application.Service) {
	t.Helper()
	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Jobs:         repos.Jobs,
		Applications: repos.Applications,
		Transactions: repos.Transactions,
		PaymentLogs:  repos.PaymentLogs,
		Reports:      repos.Reports,
		Blacklist:    repos.Blacklist,
		Transitions:  repos.Transitions,
		Outbox:       repos.Outbox,
		Idempotency:  repos.Idempotency,
		EventDedup:   repos.EventDedup,
		Locks:        memory.NewLockManager(),
	})

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(grpcadapter.APIKeyInterceptor(security.NewAPIKeyVerifier(keyHash))))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	grpcadapter.Register(server, grpcadapter.NewEscrowInternalServer(svc))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, svc
}

func TestGetJobEscrowWithoutPayment(t *testing.T) {
	conn, svc := startServer(t, "")
	ctx := context.Background()
	job, err := svc.PostJob(ctx, application.Actor{SubjectID: "emp-1", Role: domain.RoleEmployer}, application.PostJobInput{
		Title: "Paint fence", Description: "Front fence", Location: "Jinja", Budget: 20000,
	})
	if err != nil {
		t.Fatalf("post job: %v", err)
	}

	req, _ := structpb.NewStruct(map[string]any{"job_id": job.JobID})
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, "/craftsmart.escrow.v1.EscrowInternalService/GetJobEscrow", req, resp); err != nil {
		t.Fatalf("GetJobEscrow: %v", err)
	}
	fields := resp.GetFields()
	if fields["job_status"].GetStringValue() != "open" || fields["has_payment"].GetBoolValue() {
		t.Fatalf("unexpected escrow payload: %v", resp)
	}

	missing, _ := structpb.NewStruct(map[string]any{"job_id": "nope"})
	err = conn.Invoke(ctx, "/craftsmart.escrow.v1.EscrowInternalService/GetJobEscrow", missing, &structpb.Struct{})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestInternalKeyIsEnforced(t *testing.T) {
	hash, err := security.HashAPIKey("internal-secret", 4)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	conn, _ := startServer(t, hash)
	method := "/craftsmart.escrow.v1.EscrowInternalService/GetPlatformSummary"

	err = conn.Invoke(context.Background(), method, &emptypb.Empty{}, &structpb.Struct{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without key, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-internal-key", "internal-secret")
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, method, &emptypb.Empty{}, resp); err != nil {
		t.Fatalf("GetPlatformSummary with key: %v", err)
	}
	if resp.GetFields()["currency"].GetStringValue() != "UGX" {
		t.Fatalf("unexpected summary: %v", resp)
	}

	check, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || check.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health check should bypass the key: %v %v", check, err)
	}
}
