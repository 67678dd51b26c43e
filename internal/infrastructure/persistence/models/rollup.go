package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/shopspring/decimal"
)

// RollupTableName maps a granularity to its physical store; one table per
// granularity keeps the composite natural key small and the indexes hot.
func RollupTableName(granularity analytics.Granularity) string {
	switch granularity {
	case analytics.GranularityWeekly:
		return "analytics_aggregates_weekly"
	case analytics.GranularityMonthly:
		return "analytics_aggregates_monthly"
	default:
		return "analytics_aggregates_daily"
	}
}

// AnalyticsAggregateModel is the flattened rollup row. Identity is
// {tenant_id, period, date, style_id, vendor_id}; NULL optional components
// are part of the key. The full metric payload is replaced on every upsert.
type AnalyticsAggregateModel struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID *uuid.UUID `gorm:"type:uuid;index"`
	Period   string     `gorm:"type:varchar(10);not null"`
	Date     string     `gorm:"type:varchar(10);not null;index"`
	StyleID  *uuid.UUID `gorm:"type:uuid;index"`
	VendorID *uuid.UUID `gorm:"type:uuid;index"`

	CuttingOrders int64 `gorm:"not null;default:0"`
	CuttingPcs    int64 `gorm:"not null;default:0"`

	InProductionOrders int64 `gorm:"not null;default:0"`
	InProductionPcs    int64 `gorm:"not null;default:0"`

	PcsShipped   int64 `gorm:"not null;default:0"`
	PcsCompleted int64 `gorm:"not null;default:0"`

	RevenueAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	RevenueCurrency string          `gorm:"type:varchar(3);not null;default:'INR'"`

	ReceivableAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	ReceivableInvoices int64           `gorm:"not null;default:0"`

	TailorExpenseAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TailorExpensePayments int64           `gorm:"not null;default:0"`

	PendingAssignments int64 `gorm:"not null;default:0"`
	PendingPcs         int64 `gorm:"not null;default:0"`

	SamplesRequested   int64   `gorm:"not null;default:0"`
	SamplesSubmitted   int64   `gorm:"not null;default:0"`
	SamplesApproved    int64   `gorm:"not null;default:0"`
	SamplesRejected    int64   `gorm:"not null;default:0"`
	SampleTatSamples   int64   `gorm:"not null;default:0"`
	SampleAvgTatDays   float64 `gorm:"not null;default:0"`
	SampleApprovalRate float64 `gorm:"not null;default:0"`

	QCInspections int64   `gorm:"not null;default:0"`
	QCPassed      int64   `gorm:"not null;default:0"`
	QCFailed      int64   `gorm:"not null;default:0"`
	QCPassRate    float64 `gorm:"not null;default:0"`

	ShipmentCount   int64   `gorm:"not null;default:0"`
	ShipmentsOnTime int64   `gorm:"not null;default:0"`
	ShipmentsLate   int64   `gorm:"not null;default:0"`
	LateRate        float64 `gorm:"not null;default:0"`
	AvgDelayDays    float64 `gorm:"not null;default:0"`

	YieldRate  float64 `gorm:"not null;default:0"`
	ReworkRate float64 `gorm:"not null;default:0"`
	DefectRate float64 `gorm:"not null;default:0"`

	FabricMeters  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	FabricWastage decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	ComputedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// MetricColumn maps query-facing metric names to their rollup column.
// Unknown names resolve to "", which query paths treat as an empty result.
func MetricColumn(name string) string {
	switch name {
	case "cuttingReceived":
		return "cutting_pcs"
	case "cuttingOrders":
		return "cutting_orders"
	case "inProduction":
		return "in_production_pcs"
	case "pcsShipped":
		return "pcs_shipped"
	case "pcsCompleted":
		return "pcs_completed"
	case "revenue":
		return "revenue_amount"
	case "expectedReceivable":
		return "receivable_amount"
	case "tailorExpense":
		return "tailor_expense_amount"
	case "pendingFromTailors":
		return "pending_pcs"
	case "samplesRequested":
		return "samples_requested"
	case "sampleApprovalRate":
		return "sample_approval_rate"
	case "sampleAvgTat":
		return "sample_avg_tat_days"
	case "qcPassRate":
		return "qc_pass_rate"
	case "shipmentCount":
		return "shipment_count"
	case "lateShipmentRate":
		return "late_rate"
	case "avgShipmentDelay":
		return "avg_delay_days"
	case "yieldRate":
		return "yield_rate"
	case "reworkRate":
		return "rework_rate"
	case "defectRate":
		return "defect_rate"
	case "fabricConsumed":
		return "fabric_meters"
	case "fabricWastage":
		return "fabric_wastage"
	default:
		return ""
	}
}

// FromDomainAggregate populates the row from a domain aggregate. The ID is
// left untouched so upserts can preserve the existing row id.
func (m *AnalyticsAggregateModel) FromDomainAggregate(a analytics.Aggregate) {
	s := a.Metrics

	m.TenantID = a.TenantID
	m.Period = string(a.Period)
	m.Date = a.Date
	m.StyleID = a.StyleID
	m.VendorID = a.VendorID

	m.CuttingOrders = s.CuttingReceived.Orders
	m.CuttingPcs = s.CuttingReceived.Pcs
	m.InProductionOrders = s.InProduction.Orders
	m.InProductionPcs = s.InProduction.Pcs
	m.PcsShipped = s.PcsShipped
	m.PcsCompleted = s.PcsCompleted
	m.RevenueAmount = s.Revenue.Amount
	m.RevenueCurrency = s.Revenue.Currency
	m.ReceivableAmount = s.ExpectedReceivable.Amount
	m.ReceivableInvoices = s.ExpectedReceivable.Invoices
	m.TailorExpenseAmount = s.TailorExpense.Amount
	m.TailorExpensePayments = s.TailorExpense.Payments
	m.PendingAssignments = s.PendingFromTailors.Assignments
	m.PendingPcs = s.PendingFromTailors.Pcs
	m.SamplesRequested = s.Samples.Requested
	m.SamplesSubmitted = s.Samples.Submitted
	m.SamplesApproved = s.Samples.Approved
	m.SamplesRejected = s.Samples.Rejected
	m.SampleTatSamples = s.Samples.TatSamples
	m.SampleAvgTatDays = s.Samples.AvgTatDays
	m.SampleApprovalRate = s.Samples.ApprovalRate
	m.QCInspections = s.QC.Inspections
	m.QCPassed = s.QC.Passed
	m.QCFailed = s.QC.Failed
	m.QCPassRate = s.QC.PassRate
	m.ShipmentCount = s.Shipments.Count
	m.ShipmentsOnTime = s.Shipments.OnTime
	m.ShipmentsLate = s.Shipments.Late
	m.LateRate = s.Shipments.LateRate
	m.AvgDelayDays = s.Shipments.AvgDelayDays
	m.YieldRate = s.Efficiency.YieldRate
	m.ReworkRate = s.Efficiency.ReworkRate
	m.DefectRate = s.Efficiency.DefectRate
	m.FabricMeters = s.FabricConsumption.Meters
	m.FabricWastage = s.FabricConsumption.Wastage
	m.ComputedAt = a.ComputedAt
}

// ToMetricSet reassembles the metric payload from the flattened row.
func (m *AnalyticsAggregateModel) ToMetricSet() analytics.MetricSet {
	return analytics.MetricSet{
		CuttingReceived:    analytics.OrdersPcs{Orders: m.CuttingOrders, Pcs: m.CuttingPcs},
		InProduction:       analytics.OrdersPcs{Orders: m.InProductionOrders, Pcs: m.InProductionPcs},
		PcsShipped:         m.PcsShipped,
		PcsCompleted:       m.PcsCompleted,
		Revenue:            analytics.Money{Amount: m.RevenueAmount, Currency: m.RevenueCurrency},
		ExpectedReceivable: analytics.Receivable{Amount: m.ReceivableAmount, Invoices: m.ReceivableInvoices},
		TailorExpense:      analytics.Expense{Amount: m.TailorExpenseAmount, Payments: m.TailorExpensePayments},
		PendingFromTailors: analytics.PendingWork{Assignments: m.PendingAssignments, Pcs: m.PendingPcs},
		Samples: analytics.SampleStats{
			Requested: m.SamplesRequested, Submitted: m.SamplesSubmitted,
			Approved: m.SamplesApproved, Rejected: m.SamplesRejected,
			TatSamples: m.SampleTatSamples,
			AvgTatDays: m.SampleAvgTatDays, ApprovalRate: m.SampleApprovalRate,
		},
		QC: analytics.QCStats{
			Inspections: m.QCInspections, Passed: m.QCPassed, Failed: m.QCFailed, PassRate: m.QCPassRate,
		},
		Shipments: analytics.ShipmentStats{
			Count: m.ShipmentCount, OnTime: m.ShipmentsOnTime, Late: m.ShipmentsLate,
			LateRate: m.LateRate, AvgDelayDays: m.AvgDelayDays,
		},
		Efficiency: analytics.EfficiencyStats{
			YieldRate: m.YieldRate, ReworkRate: m.ReworkRate, DefectRate: m.DefectRate,
		},
		FabricConsumption: analytics.FabricStats{Meters: m.FabricMeters, Wastage: m.FabricWastage},
	}
}

// ToDomainAggregate converts the row back to a domain aggregate.
func (m *AnalyticsAggregateModel) ToDomainAggregate() analytics.Aggregate {
	return analytics.Aggregate{
		TenantID:   m.TenantID,
		Period:     analytics.Granularity(m.Period),
		Date:       m.Date,
		StyleID:    m.StyleID,
		VendorID:   m.VendorID,
		Metrics:    m.ToMetricSet(),
		ComputedAt: m.ComputedAt,
	}
}
