package domain

const (
	CanonicalEventClassDomain = "domain"
	CanonicalEventClassOps    = "ops"
)

const (
	EventJobPosted              = "job.posted"
	EventJobCanceled            = "job.canceled"
	EventApplicationAccepted    = "application.accepted"
	EventPaymentInitiated       = "escrow.payment_initiated"
	EventEscrowFunded           = "escrow.funded"
	EventPaymentFailed          = "escrow.payment_failed"
	EventDisbursementInitiated  = "escrow.disbursement_initiated"
	EventDisbursementCompleted  = "escrow.disbursement_completed"
	EventDisbursementFailed     = "escrow.disbursement_failed"
	EventRefundInitiated        = "escrow.refund_initiated"
	EventEscrowRefunded         = "escrow.refunded"
	EventRefundFailed           = "escrow.refund_failed"
	EventFeesWithdrawn          = "platform.fees_withdrawn"
	EventFeesWithdrawalFailed   = "platform.fees_withdrawal_failed"
	EventReportFiled            = "report.filed"
	EventGatewayWebhookReceived = "gateway.webhook_received"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventJobPosted, EventJobCanceled, EventApplicationAccepted,
		EventPaymentInitiated, EventEscrowFunded, EventPaymentFailed,
		EventDisbursementInitiated, EventDisbursementCompleted, EventDisbursementFailed,
		EventRefundInitiated, EventEscrowRefunded, EventRefundFailed,
		EventFeesWithdrawn, EventFeesWithdrawalFailed, EventReportFiled, EventGatewayWebhookReceived:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	if eventType == EventGatewayWebhookReceived {
		return CanonicalEventClassOps
	}
	return CanonicalEventClassDomain
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventFeesWithdrawn, EventFeesWithdrawalFailed:
		return "transaction_id"
	case EventGatewayWebhookReceived:
		return "gateway_event_id"
	default:
		return "job_id"
	}
}
