package contracts

type PostJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Budget      int64  `json:"budget"`
}

type JobResponse struct {
	JobID         string `json:"job_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	Budget        int64  `json:"budget"`
	EmployerID    string `json:"employer_id"`
	CraftsmanID   string `json:"craftsman_id,omitempty"`
	CraftsmanName string `json:"craftsman_name,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type ApplyRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CoverNote string `json:"cover_note"`
}

type ApplicationResponse struct {
	ApplicationID string `json:"application_id"`
	JobID         string `json:"job_id"`
	CraftsmanID   string `json:"craftsman_id"`
	CraftsmanName string `json:"craftsman_name"`
	CoverNote     string `json:"cover_note,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type InitiatePaymentRequest struct {
	Amount        int64  `json:"amount,omitempty"`
	PaymentMethod string `json:"payment_method"`
	EmployerPhone string `json:"employer_phone"`
	Email         string `json:"email,omitempty"`
	FullName      string `json:"full_name,omitempty"`
}

type InitiatePaymentResponse struct {
	TransactionID    string `json:"transaction_id"`
	TxRef            string `json:"tx_ref"`
	GatewayReference string `json:"gateway_reference,omitempty"`
	Status           string `json:"status"`
	RedirectURL      string `json:"redirect_url,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

type TransactionResponse struct {
	TransactionID         string `json:"transaction_id"`
	Type                  string `json:"type"`
	JobID                 string `json:"job_id,omitempty"`
	EmployerID            string `json:"employer_id,omitempty"`
	CraftsmanID           string `json:"craftsman_id,omitempty"`
	TotalAmount           int64  `json:"total_amount"`
	CommissionAmount      int64  `json:"commission_amount"`
	DisbursementAmount    int64  `json:"disbursement_amount"`
	Currency              string `json:"currency"`
	PaymentMethod         string `json:"payment_method,omitempty"`
	Provider              string `json:"provider,omitempty"`
	PaymentReference      string `json:"payment_reference,omitempty"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	DisbursementReference string `json:"disbursement_reference,omitempty"`
	ConfirmedBy           string `json:"confirmed_by,omitempty"`
	Status                string `json:"status"`
	LastError             string `json:"last_error,omitempty"`
	PaidAt                string `json:"paid_at,omitempty"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

type PaymentLogResponse struct {
	Action       string `json:"action"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type PaymentStatusResponse struct {
	Transaction TransactionResponse  `json:"transaction"`
	Logs        []PaymentLogResponse `json:"logs"`
}

type VerifyPaymentResponse struct {
	Transaction   TransactionResponse `json:"transaction"`
	GatewayStatus string              `json:"gateway_status"`
	GatewayID     string              `json:"gateway_id,omitempty"`
}

type ReleaseResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	JobStatus   string              `json:"job_status"`
}

type WithdrawFeesRequest struct {
	Amount int64  `json:"amount"`
	Phone  string `json:"phone"`
	Name   string `json:"name,omitempty"`
}

type BlacklistRequest struct {
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type BlacklistEntryResponse struct {
	EntryID string `json:"entry_id"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone"`
	Reason  string `json:"reason"`
	AddedBy string `json:"added_by,omitempty"`
	AddedAt string `json:"added_at"`
}

type PlatformSummaryResponse struct {
	TotalPlatformFees    int64  `json:"total_platform_fees"`
	Withdrawn            int64  `json:"withdrawn"`
	AvailableForWithdraw int64  `json:"available_for_withdraw"`
	Currency             string `json:"currency"`
}

type DashboardStatsResponse struct {
	TotalTransactions     int64  `json:"total_transactions"`
	TotalRevenue          int64  `json:"total_revenue"`
	TotalCommission       int64  `json:"total_commission"`
	CompletedTransactions int64  `json:"completed_transactions"`
	PaidOutTransactions   int64  `json:"paid_out_transactions"`
	Currency              string `json:"currency"`
}

type EscrowJobResponse struct {
	Job         JobResponse         `json:"job"`
	Transaction TransactionResponse `json:"transaction"`
}

type AdminActionResponse struct {
	Type          string `json:"type"`
	TransactionID string `json:"transaction_id"`
	JobID         string `json:"job_id,omitempty"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference,omitempty"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

type FileReportRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ReportResponse struct {
	ReportID    string `json:"report_id"`
	JobID       string `json:"job_id"`
	FromRole    string `json:"from_role"`
	EmployerID  string `json:"employer_id"`
	CraftsmanID string `json:"craftsman_id"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Seen        bool   `json:"seen"`
	CreatedAt   string `json:"created_at"`
}
