package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Production job lifecycle statuses.
const (
	JobStatusOpen      = "OPEN"
	JobStatusCompleted = "COMPLETED"
)

// Sample version statuses.
const (
	SampleStatusRequested = "REQUESTED"
	SampleStatusSubmitted = "SUBMITTED"
	SampleStatusApproved  = "APPROVED"
	SampleStatusRejected  = "REJECTED"
)

// QC inspection results.
const (
	QCResultPass = "PASS"
	QCResultFail = "FAIL"
)

// StyleModel is a garment style; the anchor dimension for rollups. tenant_id
// is nullable so single-tenant deployments keep working without one.
type StyleModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index"`
	VendorID  *uuid.UUID `gorm:"type:uuid;index"`
	StyleNo   string     `gorm:"type:varchar(50);not null;index"`
	Name      string     `gorm:"type:varchar(200);not null"`
	Fabric    string     `gorm:"type:varchar(100)"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (StyleModel) TableName() string { return "styles" }

// VendorModel is a buyer/vendor the styles are produced for.
type VendorModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index"`
	Name      string     `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (VendorModel) TableName() string { return "vendors" }

// TailorModel is a tailor the production work is assigned to.
type TailorModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index"`
	Name      string     `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (TailorModel) TableName() string { return "tailors" }

// RateCardModel is the unit rate agreed for a (style, vendor) pair; the
// expected-receivable calculator joins through it.
type RateCardModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	StyleID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_rate_style_vendor,priority:1"`
	VendorID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_rate_style_vendor,priority:2"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'INR'"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (RateCardModel) TableName() string { return "rate_cards" }

// CuttingRecordModel records fabric cut into pieces for a style.
// issued_at is the record's occurrence timestamp.
type CuttingRecordModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	StyleID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNo   string          `gorm:"type:varchar(50)"`
	Size      string          `gorm:"type:varchar(20);index"`
	Pcs       int64           `gorm:"not null;default:0"`
	Meters    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Wastage   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IssuedAt  time.Time       `gorm:"not null;index"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (CuttingRecordModel) TableName() string { return "cutting_records" }

// ProductionJobModel is a tailoring job. Jobs carry no tenant id; tenant
// scoping joins through the style. completed_date is the authoritative
// completion timestamp for bucketing.
type ProductionJobModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	StyleID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	TailorID      *uuid.UUID `gorm:"type:uuid;index"`
	Pcs           int64      `gorm:"not null;default:0"`
	DefectPcs     int64      `gorm:"not null;default:0"`
	Status        string     `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Rework        bool       `gorm:"not null;default:false"`
	AssignedAt    time.Time  `gorm:"not null;index"`
	CompletedDate *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (ProductionJobModel) TableName() string { return "production_jobs" }

// TailorAssignmentModel tracks pieces issued to a tailor and received back;
// the pending-from-tailors snapshot reads open assignments.
type TailorAssignmentModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	StyleID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	TailorID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	PcsIssued   int64      `gorm:"not null;default:0"`
	PcsReceived int64      `gorm:"not null;default:0"`
	IssuedAt    time.Time  `gorm:"not null;index"`
	ClosedAt    *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (TailorAssignmentModel) TableName() string { return "tailor_assignments" }

// ShipmentModel is a dispatched shipment. shipped_at is the occurrence
// timestamp; promised_date is nullable and a shipment without one is never
// counted late.
type ShipmentModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	StyleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VendorID     *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceNo    string          `gorm:"type:varchar(50)"`
	Pcs          int64           `gorm:"not null;default:0"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'INR'"`
	ShippedAt    time.Time       `gorm:"not null;index"`
	PromisedDate *time.Time      `gorm:"index"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

func (ShipmentModel) TableName() string { return "shipments" }

// TailorPaymentModel is a payment made to a tailor. paid_at is the
// occurrence timestamp.
type TailorPaymentModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	TailorID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	StyleID   *uuid.UUID      `gorm:"type:uuid;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAt    time.Time       `gorm:"not null;index"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (TailorPaymentModel) TableName() string { return "tailor_payments" }

// SampleVersionModel is one iteration of a style sample.
type SampleVersionModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	StyleID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Version     int        `gorm:"not null;default:1"`
	Status      string     `gorm:"type:varchar(20);not null;default:'REQUESTED';index"`
	RequestedAt time.Time  `gorm:"not null;index"`
	SubmittedAt *time.Time `gorm:"index"`
	DecidedAt   *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (SampleVersionModel) TableName() string { return "sample_versions" }

// QCInspectionModel is one quality-control inspection.
type QCInspectionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	StyleID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Result      string    `gorm:"type:varchar(10);not null;index"`
	PcsChecked  int64     `gorm:"not null;default:0"`
	PcsFailed   int64     `gorm:"not null;default:0"`
	InspectedAt time.Time `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (QCInspectionModel) TableName() string { return "qc_inspections" }
