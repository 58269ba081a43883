package handler

import (
	"time"

	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/workorder"
	"github.com/shopspring/decimal"
)

// CreateBOLRequest is the body of POST /api/v1/bols
type CreateBOLRequest struct {
	Metadata bol.Metadata  `json:"metadata"`
	Vehicles []bol.Vehicle `json:"vehicles" binding:"required"`
}

// UpdateBOLRequest is the body of PUT /api/v1/bols/:id. Omitted parts are left unchanged.
type UpdateBOLRequest struct {
	Metadata *bol.Metadata `json:"metadata"`
	Vehicles []bol.Vehicle `json:"vehicles"`
}

// ListParams are the query parameters of list endpoints
type ListParams struct {
	Limit  int `form:"limit" binding:"min=0,max=100"`
	Offset int `form:"offset" binding:"min=0"`
}

// CreatePaymentRequest is the body of POST /api/v1/payments. Exactly one of
// bol_id and work_order_no identifies the bill; bol_id wins when both are set.
type CreatePaymentRequest struct {
	BOLID           string          `json:"bol_id" binding:"omitempty,uuid"`
	WorkOrderNo     string          `json:"work_order_no"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentType     string          `json:"payment_type" binding:"required"`
	Date            *time.Time      `json:"date"`
	PickupLocation  string          `json:"pickup_location"`
	DropoffLocation string          `json:"dropoff_location"`
	Comments        string          `json:"comments"`
}

// CreateDailyExpenseRequest is the body of POST /api/v1/daily-expenses. Date is YYYY-MM-DD.
type CreateDailyExpenseRequest struct {
	Date                    string           `json:"date" binding:"required"`
	DieselAmount            decimal.Decimal  `json:"diesel_amount"`
	DieselLocation          string           `json:"diesel_location"`
	DEFAmount               decimal.Decimal  `json:"def_amount"`
	DEFLocation             string           `json:"def_location"`
	OtherExpenseDescription string           `json:"other_expense_description"`
	OtherExpenseAmount      decimal.Decimal  `json:"other_expense_amount"`
	OtherExpenseLocation    string           `json:"other_expense_location"`
	Total                   *decimal.Decimal `json:"total"`
}

// SummaryParams are the query parameters of the summary report
type SummaryParams struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(bol.MoneyPlaces)
}

// VehicleResponse is one line item
type VehicleResponse struct {
	Year    string `json:"year"`
	Make    string `json:"make"`
	Model   string `json:"model"`
	VIN     string `json:"vin"`
	Mileage string `json:"mileage"`
	Price   string `json:"price"`
}

// BOLResponse represents a bill of lading with its derived payment state
type BOLResponse struct {
	ID string `json:"id"`
	bol.Metadata
	Vehicles          []VehicleResponse    `json:"vehicles"`
	TotalAmount       string               `json:"total_amount"`
	TotalCollected    string               `json:"total_collected"`
	DueAmount         string               `json:"due_amount"`
	PaymentStatus     shared.PaymentStatus `json:"payment_status"`
	IsFullyPaid       bool                 `json:"is_fully_paid"`
	PaymentPercentage string               `json:"payment_percentage"`
	CreatedBy         string               `json:"created_by"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
}

// EntryResponse represents one ledger entry
type EntryResponse struct {
	ID              string `json:"id"`
	BOLID           string `json:"bol_id"`
	Date            string `json:"date"`
	WorkOrderNo     string `json:"work_order_no,omitempty"`
	CollectedAmount string `json:"collected_amount"`
	DueAmount       string `json:"due_amount"`
	PaymentType     string `json:"payment_type"`
	PickupLocation  string `json:"pickup_location,omitempty"`
	DropoffLocation string `json:"dropoff_location,omitempty"`
	Comments        string `json:"comments,omitempty"`
	UserID          string `json:"user_id"`
	CreatedAt       string `json:"created_at"`
}

// HistoryResponse is a ledger entry joined with its bill's current details
type HistoryResponse struct {
	EntryResponse
	CurrentWorkOrderNo string `json:"current_work_order_no"`
	DriverName         string `json:"driver_name"`
	BrokerName         string `json:"broker_name,omitempty"`
	BrokerAddress      string `json:"broker_address,omitempty"`
	BrokerPhone        string `json:"broker_phone,omitempty"`
	PickupCity         string `json:"pickup_city,omitempty"`
	DeliveryCity       string `json:"delivery_city,omitempty"`
}

// ExpenseResponse represents one daily expense
type ExpenseResponse struct {
	ID                      string `json:"id"`
	Date                    string `json:"date"`
	DieselAmount            string `json:"diesel_amount"`
	DieselLocation          string `json:"diesel_location,omitempty"`
	DEFAmount               string `json:"def_amount"`
	DEFLocation             string `json:"def_location,omitempty"`
	OtherExpenseDescription string `json:"other_expense_description,omitempty"`
	OtherExpenseAmount      string `json:"other_expense_amount"`
	OtherExpenseLocation    string `json:"other_expense_location,omitempty"`
	Total                   string `json:"total"`
	UserID                  string `json:"user_id"`
	CreatedAt               string `json:"created_at"`
}

// WorkOrderResponse is one pending work order
type WorkOrderResponse struct {
	BOLID          string `json:"bol_id"`
	WorkOrderNo    string `json:"work_order_no"`
	DriverName     string `json:"driver_name"`
	Date           string `json:"date"`
	TotalAmount    string `json:"total_amount"`
	TotalCollected string `json:"total_collected"`
	DueAmount      string `json:"due_amount"`
}

// StatusResponse is the payment state of one work order
type StatusResponse struct {
	BOLID             string               `json:"bol_id"`
	WorkOrderNo       string               `json:"work_order_no"`
	TotalAmount       string               `json:"total_amount"`
	TotalCollected    string               `json:"total_collected"`
	DueAmount         string               `json:"due_amount"`
	PaymentStatus     shared.PaymentStatus `json:"payment_status"`
	IsFullyPaid       bool                 `json:"is_fully_paid"`
	PaymentPercentage string               `json:"payment_percentage"`
}

// RevisionResponse is one total amount change
type RevisionResponse struct {
	ID            string `json:"id"`
	PreviousTotal string `json:"previous_total"`
	NewTotal      string `json:"new_total"`
	ChangedBy     string `json:"changed_by"`
	ChangedAt     string `json:"changed_at"`
}

// StatementResponse is a consistent snapshot of one bill and its ledger
type StatementResponse struct {
	BOL               BOLResponse          `json:"bol"`
	LineItems         []VehicleResponse    `json:"line_items"`
	Entries           []EntryResponse      `json:"entries"`
	PaymentStatus     shared.PaymentStatus `json:"payment_status"`
	PaymentPercentage string               `json:"payment_percentage"`
	Version           int64                `json:"version"`
	GeneratedAt       string               `json:"generated_at"`
}

// SummaryResponse aggregates bills dated in a range
type SummaryResponse struct {
	From        string                         `json:"from"`
	To          string                         `json:"to"`
	Count       int64                          `json:"count"`
	Billed      string                         `json:"billed"`
	Collected   string                         `json:"collected"`
	Outstanding string                         `json:"outstanding"`
	ByStatus    map[shared.PaymentStatus]int64 `json:"by_status"`
}

func mapVehicles(vehicles []bol.Vehicle) []VehicleResponse {
	out := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, VehicleResponse{
			Year:    v.Year,
			Make:    v.Make,
			Model:   v.Model,
			VIN:     v.VIN,
			Mileage: v.Mileage,
			Price:   money(v.Price),
		})
	}
	return out
}

func mapBOLToResponse(b *bol.BillOfLading) BOLResponse {
	return BOLResponse{
		ID:                b.ID.String(),
		Metadata:          b.Metadata,
		Vehicles:          mapVehicles(b.Vehicles),
		TotalAmount:       money(b.TotalAmount),
		TotalCollected:    money(b.TotalCollected),
		DueAmount:         money(b.DueAmount),
		PaymentStatus:     b.PaymentStatus(),
		IsFullyPaid:       b.IsFullyPaid(),
		PaymentPercentage: money(b.PaymentPercentage()),
		CreatedBy:         b.CreatedBy,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         b.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:              e.ID.String(),
		BOLID:           e.BOLID.String(),
		Date:            e.Date.Format(time.DateOnly),
		WorkOrderNo:     e.WorkOrderNo,
		CollectedAmount: money(e.CollectedAmount),
		DueAmount:       money(e.DueAmount),
		PaymentType:     string(e.PaymentType),
		PickupLocation:  e.PickupLocation,
		DropoffLocation: e.DropoffLocation,
		Comments:        e.Comments,
		UserID:          e.UserID,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339Nano),
	}
}

func mapHistoryToResponse(h *ledger.History) HistoryResponse {
	return HistoryResponse{
		EntryResponse:      mapEntryToResponse(&h.Entry),
		CurrentWorkOrderNo: h.CurrentWorkOrderNo,
		DriverName:         h.DriverName,
		BrokerName:         h.BrokerName,
		BrokerAddress:      h.BrokerAddress,
		BrokerPhone:        h.BrokerPhone,
		PickupCity:         h.PickupCity,
		DeliveryCity:       h.DeliveryCity,
	}
}

func mapExpenseToResponse(e *expense.DailyExpense) ExpenseResponse {
	return ExpenseResponse{
		ID:                      e.ID.String(),
		Date:                    e.Date.Format(time.DateOnly),
		DieselAmount:            money(e.DieselAmount),
		DieselLocation:          e.DieselLocation,
		DEFAmount:               money(e.DEFAmount),
		DEFLocation:             e.DEFLocation,
		OtherExpenseDescription: e.OtherDescription,
		OtherExpenseAmount:      money(e.OtherAmount),
		OtherExpenseLocation:    e.OtherLocation,
		Total:                   money(e.Total),
		UserID:                  e.UserID,
		CreatedAt:               e.CreatedAt.Format(time.RFC3339),
	}
}

func mapWorkOrderToResponse(w *bol.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		BOLID:          w.BOLID.String(),
		WorkOrderNo:    w.WorkOrderNo,
		DriverName:     w.DriverName,
		Date:           w.Date.Format(time.DateOnly),
		TotalAmount:    money(w.TotalAmount),
		TotalCollected: money(w.TotalCollected),
		DueAmount:      money(w.DueAmount),
	}
}

func mapStatusToResponse(s *workorder.Status) StatusResponse {
	return StatusResponse{
		BOLID:             s.BOLID.String(),
		WorkOrderNo:       s.WorkOrderNo,
		TotalAmount:       money(s.TotalAmount),
		TotalCollected:    money(s.TotalCollected),
		DueAmount:         money(s.DueAmount),
		PaymentStatus:     s.PaymentStatus,
		IsFullyPaid:       s.IsFullyPaid,
		PaymentPercentage: money(s.PaymentPercentage),
	}
}

func mapRevisionToResponse(r *bol.AmountRevision) RevisionResponse {
	return RevisionResponse{
		ID:            r.ID.String(),
		PreviousTotal: money(r.PreviousTotal),
		NewTotal:      money(r.NewTotal),
		ChangedBy:     r.ChangedBy,
		ChangedAt:     r.ChangedAt.Format(time.RFC3339),
	}
}

func mapStatementToResponse(s *statement.Snapshot) StatementResponse {
	entries := make([]EntryResponse, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, mapEntryToResponse(e))
	}
	return StatementResponse{
		BOL:               mapBOLToResponse(s.BOL),
		LineItems:         mapVehicles(s.LineItems),
		Entries:           entries,
		PaymentStatus:     s.PaymentStatus,
		PaymentPercentage: money(s.PaymentPercentage),
		Version:           s.Version(),
		GeneratedAt:       s.GeneratedAt.Format(time.RFC3339),
	}
}

func mapSummaryToResponse(s *bol.Summary) SummaryResponse {
	return SummaryResponse{
		From:        s.From.Format(time.DateOnly),
		To:          s.To.Format(time.DateOnly),
		Count:       s.Count,
		Billed:      money(s.Billed),
		Collected:   money(s.Collected),
		Outstanding: money(s.Outstanding),
		ByStatus:    s.ByStatus,
	}
}
