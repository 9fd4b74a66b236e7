package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

func TestTransitionCommitRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job, tx := f.fundedJob(t, 10000)

	staleJob, staleTx := job, tx
	fresh := tx
	fresh.LastError = "touched"
	if err := f.repos.Transitions.Commit(ctx, ports.Transition{Transaction: &fresh}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if fresh.Version != tx.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", tx.Version+1, fresh.Version)
	}

	staleJob.Title = "Renamed"
	staleTx.LastError = "stale"
	err := f.repos.Transitions.Commit(ctx, ports.Transition{Job: &staleJob, Transaction: &staleTx})
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
	storedTx, _ := f.repos.Transactions.GetByID(ctx, tx.TransactionID)
	if storedTx.LastError != "touched" {
		t.Fatalf("expected stale write to be discarded, got %q", storedTx.LastError)
	}
	storedJob, _ := f.repos.Jobs.GetByID(ctx, job.JobID)
	if storedJob.Title == "Renamed" || storedJob.Version != job.Version {
		t.Fatalf("expected job untouched by the rejected transition, got %+v", storedJob)
	}
}

func TestCancelJob(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	open, err := f.service.PostJob(ctx, employer, application.PostJobInput{Title: "Tile floor", Description: "Bathroom", Location: "Gulu", Budget: 9000})
	if err != nil {
		t.Fatalf("post job failed: %v", err)
	}
	other := application.Actor{SubjectID: "emp-2", Role: domain.RoleEmployer}
	if _, err := f.service.CancelJob(ctx, other, open.JobID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected another employer to be forbidden, got %v", err)
	}
	if _, err := f.service.CancelJob(ctx, craftsman, open.JobID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected craftsman to be forbidden, got %v", err)
	}
	canceled, err := f.service.CancelJob(ctx, employer, open.JobID)
	if err != nil {
		t.Fatalf("cancel open job failed: %v", err)
	}
	if canceled.Status != domain.JobStatusCanceled {
		t.Fatalf("expected canceled job, got %s", canceled.Status)
	}
	if _, err := f.service.CancelJob(ctx, employer, open.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected second cancel to be refused, got %v", err)
	}

	assigned := f.assignedJob(t, 12000)
	if assigned.Status != domain.JobStatusInProgress {
		t.Fatalf("expected in-progress job, got %s", assigned.Status)
	}
	canceled, err = f.service.CancelJob(ctx, admin, assigned.JobID)
	if err != nil {
		t.Fatalf("admin cancel of in-progress job failed: %v", err)
	}
	if canceled.Status != domain.JobStatusCanceled {
		t.Fatalf("expected canceled job, got %s", canceled.Status)
	}
	if n := f.eventCount(domain.EventJobCanceled); n != 2 {
		t.Fatalf("expected two job_canceled events, got %d", n)
	}
}

func TestCancelJobWithPendingPaymentConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	job := f.assignedJob(t, 12000)
	if _, err := f.service.InitiatePayment(ctx, withKey(employer, "p"), application.InitiatePaymentInput{
		JobID: job.JobID, PaymentMethod: "MTN", EmployerPhone: "0772000111",
	}); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if _, err := f.service.CancelJob(ctx, employer, job.JobID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while payment pending, got %v", err)
	}
	reloaded, _ := f.service.GetJob(ctx, employer, job.JobID)
	if reloaded.Status != domain.JobStatusInProgress {
		t.Fatalf("expected job left in progress, got %s", reloaded.Status)
	}
}

func TestListJobsClampsPageSize(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 105; i++ {
		if _, err := f.service.PostJob(ctx, employer, application.PostJobInput{
			Title:       fmt.Sprintf("Job %d", i),
			Description: "Repair",
			Location:    "Mbarara",
			Budget:      5000,
		}); err != nil {
			t.Fatalf("post job %d failed: %v", i, err)
		}
	}

	cases := []struct {
		name  string
		input application.ListJobsInput
		want  int
	}{
		{name: "default", input: application.ListJobsInput{}, want: 20},
		{name: "explicit", input: application.ListJobsInput{Limit: 7}, want: 7},
		{name: "capped", input: application.ListJobsInput{Limit: 500}, want: 100},
		{name: "last page", input: application.ListJobsInput{Limit: 500, Offset: 100}, want: 5},
		{name: "negative offset", input: application.ListJobsInput{Limit: 3, Offset: -4}, want: 3},
	}
	for _, tc := range cases {
		jobs, err := f.service.ListJobs(ctx, craftsman, tc.input)
		if err != nil {
			t.Fatalf("%s: list failed: %v", tc.name, err)
		}
		if len(jobs) != tc.want {
			t.Fatalf("%s: expected %d jobs, got %d", tc.name, tc.want, len(jobs))
		}
	}
}
