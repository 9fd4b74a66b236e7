package application_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/craftsmart/escrow-service/internal/adapters/memory"
	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

type fixture struct {
	service *application.Service
	repos   *memory.Repositories
	locks   *memory.LockManager
	gateway *fakeGateway
}

func newFixture(mutators ...func(*application.Config)) *fixture {
	cfg := application.Config{
		ServiceName:       "escrow-test",
		Currency:          "UGX",
		CommissionRateBps: 1000,
		ChargeCap:         40000,
		LockTTL:           time.Minute,
		ReconcileAge:      time.Nanosecond,
	}
	for _, mutate := range mutators {
		mutate(&cfg)
	}
	repos := memory.NewRepositories()
	locks := memory.NewLockManager()
	gateway := &fakeGateway{transferStatus: ports.GatewayStatusSuccessful}
	svc := application.NewService(application.Dependencies{
		Config:          cfg,
		Jobs:            repos.Jobs,
		Applications:    repos.Applications,
		Transactions:    repos.Transactions,
		PaymentLogs:     repos.PaymentLogs,
		Reports:         repos.Reports,
		Blacklist:       repos.Blacklist,
		Transitions:     repos.Transitions,
		Outbox:          repos.Outbox,
		Idempotency:     repos.Idempotency,
		EventDedup:      repos.EventDedup,
		Locks:           locks,
		Gateway:         gateway,
		WebhookVerifier: fakeVerifier{},
		WebhookParser:   fakeParser{},
	})
	return &fixture{service: svc, repos: repos, locks: locks, gateway: gateway}
}

var (
	employer  = application.Actor{SubjectID: "emp-1", Role: domain.RoleEmployer, Name: "Grace"}
	craftsman = application.Actor{SubjectID: "cra-1", Role: domain.RoleCraftsman, Name: "Moses"}
	admin     = application.Actor{SubjectID: "adm-1", Role: domain.RoleAdmin, Name: "Ops"}
)

func withKey(actor application.Actor, key string) application.Actor {
	actor.IdempotencyKey = key
	return actor
}

// assignedJob posts a job and accepts one craftsman application.
func (f *fixture) assignedJob(t *testing.T, budget int64) domain.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.service.PostJob(ctx, employer, application.PostJobInput{
		Title:       "Fix kitchen sink",
		Description: "Leaking pipe under the sink",
		Location:    "Kampala",
		Budget:      budget,
	})
	if err != nil {
		t.Fatalf("post job failed: %v", err)
	}
	app, err := f.service.Apply(ctx, craftsman, application.ApplyInput{JobID: job.JobID, Name: "Moses", Phone: "0772 123456"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	_, job, err = f.service.AcceptApplication(ctx, employer, app.ApplicationID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	return job
}

// fundedJob drives a job to paid-in-escrow through a successful charge webhook.
func (f *fixture) fundedJob(t *testing.T, budget int64) (domain.Job, domain.Transaction) {
	t.Helper()
	ctx := context.Background()
	job := f.assignedJob(t, budget)
	res, err := f.service.InitiatePayment(ctx, withKey(employer, "pay-"+job.JobID), application.InitiatePaymentInput{
		JobID:         job.JobID,
		PaymentMethod: "mtn",
		EmployerPhone: "+256701000111",
	})
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	if _, err := f.service.ReceiveWebhook(ctx, webhook(t, ports.GatewayEvent{
		EventID:   "charge.completed:" + res.Transaction.TransactionID + ":successful",
		Kind:      ports.GatewayEventCharge,
		GatewayID: "flw-1",
		Reference: res.Transaction.PaymentReference,
		Status:    ports.GatewayStatusSuccessful,
		Amount:    res.Transaction.TotalAmount,
		Currency:  "UGX",
	})); err != nil {
		t.Fatalf("charge webhook failed: %v", err)
	}
	job, err = f.service.GetJob(ctx, employer, job.JobID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	tx, err := f.repos.Transactions.GetByID(ctx, res.Transaction.TransactionID)
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	return job, tx
}

func (f *fixture) eventCount(eventType string) int {
	n := 0
	for _, rec := range f.repos.Outbox.Records() {
		if rec.EventType == eventType {
			n++
		}
	}
	return n
}

func webhook(t *testing.T, event ports.GatewayEvent) application.WebhookInput {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return application.WebhookInput{Body: body, Signature: ports.WebhookSignature{VerifHash: "ok"}}
}

func decodeEnvelope(t *testing.T, payload []byte) contracts.EventEnvelope {
	t.Helper()
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ []byte, sig ports.WebhookSignature) error {
	if sig.VerifHash != "ok" {
		return domain.ErrInvalidSignature
	}
	return nil
}

type fakeParser struct{}

func (fakeParser) Parse(body []byte) (ports.GatewayEvent, error) {
	var event ports.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return ports.GatewayEvent{}, domain.ErrInvalidInput
	}
	return event, nil
}

type fakeGateway struct {
	mu             sync.Mutex
	chargeErr      error
	verify         ports.ChargeStatus
	verifyErr      error
	transferStatus string
	transferErr    error
	statusResult   ports.TransferResult
	charges        []ports.ChargeRequest
	transfers      []ports.TransferRequest
}

func (g *fakeGateway) ProviderFor(string) string { return "flutterwave" }

func (g *fakeGateway) Charge(_ context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return ports.ChargeResult{}, g.chargeErr
	}
	return ports.ChargeResult{
		Provider:         "flutterwave",
		GatewayReference: "flw-" + req.Reference,
		Status:           ports.GatewayStatusPending,
		RedirectURL:      "https://checkout.example/" + req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyCharge(_ context.Context, _, reference string) (ports.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return ports.ChargeStatus{}, g.verifyErr
	}
	out := g.verify
	out.Reference = reference
	return out, nil
}

func (g *fakeGateway) Transfer(_ context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, req)
	if g.transferErr != nil {
		return ports.TransferResult{}, g.transferErr
	}
	return ports.TransferResult{
		Provider:   "flutterwave",
		TransferID: "tr-" + req.Reference,
		Reference:  req.Reference,
		Status:     g.transferStatus,
	}, nil
}

func (g *fakeGateway) TransferStatus(_ context.Context, _, transferID string) (ports.TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.statusResult
	out.TransferID = transferID
	return out, nil
}

func (g *fakeGateway) transferCalls() []ports.TransferRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.TransferRequest(nil), g.transfers...)
}
