package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrdersPcs pairs an order/job count with a piece total.
type OrdersPcs struct {
	Orders int64 `json:"orders"`
	Pcs    int64 `json:"pcs"`
}

// Money is a currency-tagged amount.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Receivable is the expected receivable for a window (shipped qty x rate).
type Receivable struct {
	Amount   decimal.Decimal `json:"amount"`
	Invoices int64           `json:"invoices"`
}

// Expense totals tailor payments for a window.
type Expense struct {
	Amount   decimal.Decimal `json:"amount"`
	Payments int64           `json:"payments"`
}

// PendingWork is the outstanding tailor work snapshot as of bucket end.
type PendingWork struct {
	Assignments int64 `json:"assignments"`
	Pcs         int64 `json:"pcs"`
}

// SampleStats aggregates sample version activity. TatSamples counts the
// versions whose turnaround is known and weights AvgTatDays when buckets
// are combined.
type SampleStats struct {
	Requested    int64   `json:"requested"`
	Submitted    int64   `json:"submitted"`
	Approved     int64   `json:"approved"`
	Rejected     int64   `json:"rejected"`
	TatSamples   int64   `json:"tat_samples"`
	AvgTatDays   float64 `json:"avg_tat_days"`
	ApprovalRate float64 `json:"approval_rate"`
}

// QCStats aggregates quality-control inspections.
type QCStats struct {
	Inspections int64   `json:"inspections"`
	Passed      int64   `json:"passed"`
	Failed      int64   `json:"failed"`
	PassRate    float64 `json:"pass_rate"`
}

// ShipmentStats aggregates shipment punctuality. Shipments without a
// promised date count toward Count but are excluded from the late-rate
// denominator.
type ShipmentStats struct {
	Count        int64   `json:"count"`
	OnTime       int64   `json:"on_time"`
	Late         int64   `json:"late"`
	LateRate     float64 `json:"late_rate"`
	AvgDelayDays float64 `json:"avg_delay_days"`
}

// EfficiencyStats holds derived production ratios.
type EfficiencyStats struct {
	YieldRate  float64 `json:"yield_rate"`
	ReworkRate float64 `json:"rework_rate"`
	DefectRate float64 `json:"defect_rate"`
}

// FabricStats totals fabric issued and wasted during cutting.
type FabricStats struct {
	Meters  decimal.Decimal `json:"meters"`
	Wastage decimal.Decimal `json:"wastage"`
}

// MetricSet is the full metric payload of one aggregate row. Every group is
// a value type so absent source data always materialises as zeros.
type MetricSet struct {
	CuttingReceived    OrdersPcs       `json:"cutting_received"`
	InProduction       OrdersPcs       `json:"in_production"`
	PcsShipped         int64           `json:"pcs_shipped"`
	PcsCompleted       int64           `json:"pcs_completed"`
	Revenue            Money           `json:"revenue"`
	ExpectedReceivable Receivable      `json:"expected_receivable"`
	TailorExpense      Expense         `json:"tailor_expense"`
	PendingFromTailors PendingWork     `json:"pending_from_tailors"`
	Samples            SampleStats     `json:"samples"`
	QC                 QCStats         `json:"qc"`
	Shipments          ShipmentStats   `json:"shipments"`
	Efficiency         EfficiencyStats `json:"efficiency"`
	FabricConsumption  FabricStats     `json:"fabric_consumption"`
}

// Aggregate is one pre-computed rollup row. Identity is the composite
// natural key {TenantID, Period, Date, StyleID, VendorID}; nil optional
// components are part of the key, not wildcards. A nil StyleID marks the
// tenant-wide row; VendorID is denormalized from the style.
type Aggregate struct {
	TenantID   *uuid.UUID  `json:"tenant_id,omitempty"`
	Period     Granularity `json:"period"`
	Date       string      `json:"date"`
	StyleID    *uuid.UUID  `json:"style_id,omitempty"`
	VendorID   *uuid.UUID  `json:"vendor_id,omitempty"`
	Metrics    MetricSet   `json:"metrics"`
	ComputedAt time.Time   `json:"computed_at"`
}

// Ratio returns num/den*100, or 0 when the denominator is zero. Every
// ratio metric in the subsystem goes through this helper so a zero
// denominator can never surface as NaN or an error.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// RatioF is Ratio over float64 operands.
func RatioF(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}
