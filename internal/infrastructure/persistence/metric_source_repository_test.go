package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/infrastructure/persistence/models"
)

// sourceFixture seeds two tenants with one style each so scope filtering
// has something to exclude.
type sourceFixture struct {
	db       *gorm.DB
	tenantID uuid.UUID
	vendorID uuid.UUID
	styleID  uuid.UUID

	otherTenantID uuid.UUID
	otherStyleID  uuid.UUID
}

func setupSourceFixture(t *testing.T) *sourceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.StyleModel{}, &models.VendorModel{}, &models.TailorModel{},
		&models.RateCardModel{}, &models.CuttingRecordModel{},
		&models.ProductionJobModel{}, &models.TailorAssignmentModel{},
		&models.ShipmentModel{}, &models.TailorPaymentModel{},
		&models.QCInspectionModel{},
	)
	require.NoError(t, err)

	f := &sourceFixture{
		db:            db,
		tenantID:      uuid.New(),
		vendorID:      uuid.New(),
		styleID:       uuid.New(),
		otherTenantID: uuid.New(),
		otherStyleID:  uuid.New(),
	}
	require.NoError(t, db.Create(&models.StyleModel{
		ID: f.styleID, TenantID: &f.tenantID, VendorID: &f.vendorID,
		StyleNo: "SK-101", Name: "Summer Kurta", Fabric: "Cotton",
	}).Error)
	require.NoError(t, db.Create(&models.StyleModel{
		ID: f.otherStyleID, TenantID: &f.otherTenantID,
		StyleNo: "WB-300", Name: "Winter Blazer", Fabric: "Wool",
	}).Error)
	return f
}

func (f *sourceFixture) tenantScope() analytics.Scope {
	return analytics.Scope{TenantID: &f.tenantID}
}

var (
	windowFrom = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2026, 2, 7, 23, 59, 59, 0, time.UTC)
)

func inWindow(day int) time.Time {
	return time.Date(2026, 2, day, 12, 0, 0, 0, time.UTC)
}

func TestCuttingReceived(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	records := []models.CuttingRecordModel{
		{ID: uuid.New(), StyleID: f.styleID, Size: "M", Pcs: 120, IssuedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, Size: "L", Pcs: 80, IssuedAt: inWindow(5)},
		// Outside the window.
		{ID: uuid.New(), StyleID: f.styleID, Size: "M", Pcs: 999, IssuedAt: inWindow(20)},
		// Another tenant's style.
		{ID: uuid.New(), StyleID: f.otherStyleID, Size: "M", Pcs: 500, IssuedAt: inWindow(3)},
	}
	require.NoError(t, f.db.Create(&records).Error)

	got, err := source.CuttingReceived(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, analytics.OrdersPcs{Orders: 2, Pcs: 200}, got)

	t.Run("style scope", func(t *testing.T) {
		scope := analytics.Scope{TenantID: &f.tenantID, StyleID: &f.otherStyleID}
		got, err := source.CuttingReceived(ctx, scope, windowFrom, windowTo)
		require.NoError(t, err)
		assert.Equal(t, analytics.OrdersPcs{}, got, "style must also satisfy the tenant filter")
	})

	t.Run("empty window", func(t *testing.T) {
		got, err := source.CuttingReceived(ctx, f.tenantScope(), inWindow(10), inWindow(11))
		require.NoError(t, err)
		assert.Equal(t, analytics.OrdersPcs{}, got)
	})

	t.Run("tailor scope has no cutting rows", func(t *testing.T) {
		tailorID := uuid.New()
		got, err := source.CuttingReceived(ctx, analytics.Scope{TailorID: &tailorID}, windowFrom, windowTo)
		require.NoError(t, err)
		assert.Equal(t, analytics.OrdersPcs{}, got)
	})
}

func TestInProduction(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	asOf := inWindow(5)
	completed := inWindow(4)
	jobs := []models.ProductionJobModel{
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 300, Status: models.JobStatusOpen, AssignedAt: inWindow(1)},
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 120, Status: models.JobStatusOpen, AssignedAt: inWindow(3)},
		// Assigned after the snapshot moment.
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 999, Status: models.JobStatusOpen, AssignedAt: inWindow(6)},
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 50, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &completed},
	}
	require.NoError(t, f.db.Create(&jobs).Error)

	got, err := source.InProduction(ctx, f.tenantScope(), asOf)
	require.NoError(t, err)
	assert.Equal(t, analytics.OrdersPcs{Orders: 2, Pcs: 420}, got)
}

func TestPcsCompleted(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	tailorID := uuid.New()
	inside := inWindow(3)
	outside := inWindow(15)
	jobs := []models.ProductionJobModel{
		{ID: uuid.New(), StyleID: f.styleID, TailorID: &tailorID, Pcs: 140, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &inside},
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 60, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &outside},
		// Still open, no completion timestamp, never bucketed.
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 999, Status: models.JobStatusOpen, AssignedAt: inWindow(1)},
	}
	require.NoError(t, f.db.Create(&jobs).Error)

	got, err := source.PcsCompleted(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, int64(140), got)

	t.Run("tailor scope", func(t *testing.T) {
		got, err := source.PcsCompleted(ctx, analytics.Scope{TailorID: &tailorID}, windowFrom, windowTo)
		require.NoError(t, err)
		assert.Equal(t, int64(140), got)

		other := uuid.New()
		got, err = source.PcsCompleted(ctx, analytics.Scope{TailorID: &other}, windowFrom, windowTo)
		require.NoError(t, err)
		assert.Zero(t, got)
	})
}

func TestPcsShippedAndRevenue(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	shipments := []models.ShipmentModel{
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &f.vendorID, InvoiceNo: "INV-1", Pcs: 100, Amount: decimal.NewFromInt(5000), Currency: "INR", ShippedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &f.vendorID, InvoiceNo: "INV-2", Pcs: 40, Amount: decimal.NewFromInt(2000), Currency: "INR", ShippedAt: inWindow(6)},
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &f.vendorID, InvoiceNo: "INV-3", Pcs: 999, Amount: decimal.NewFromInt(9999), Currency: "INR", ShippedAt: inWindow(20)},
	}
	require.NoError(t, f.db.Create(&shipments).Error)

	pcs, err := source.PcsShipped(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, int64(140), pcs)

	money, err := source.Revenue(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.True(t, money.Amount.Equal(decimal.NewFromInt(7000)), "got %s", money.Amount)
	assert.Equal(t, "INR", money.Currency)

	t.Run("empty window keeps default currency", func(t *testing.T) {
		money, err := source.Revenue(ctx, f.tenantScope(), inWindow(10), inWindow(11))
		require.NoError(t, err)
		assert.True(t, money.Amount.IsZero())
		assert.Equal(t, "INR", money.Currency)
	})
}

func TestExpectedReceivable(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.RateCardModel{
		ID: uuid.New(), StyleID: f.styleID, VendorID: f.vendorID,
		Rate: decimal.NewFromInt(50), Currency: "INR",
	}).Error)

	unratedVendor := uuid.New()
	shipments := []models.ShipmentModel{
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &f.vendorID, InvoiceNo: "INV-1", Pcs: 100, ShippedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &f.vendorID, InvoiceNo: "INV-1", Pcs: 20, ShippedAt: inWindow(3)},
		// No rate card for this vendor pair; contributes zero amount.
		{ID: uuid.New(), StyleID: f.styleID, VendorID: &unratedVendor, InvoiceNo: "INV-2", Pcs: 500, ShippedAt: inWindow(4)},
	}
	require.NoError(t, f.db.Create(&shipments).Error)

	got, err := source.ExpectedReceivable(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(6000)), "got %s", got.Amount)
	assert.Equal(t, int64(2), got.Invoices, "invoices count distinct invoice numbers")
}

func TestTailorExpense(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	tailorA := uuid.New()
	tailorB := uuid.New()
	payments := []models.TailorPaymentModel{
		{ID: uuid.New(), TailorID: tailorA, StyleID: &f.styleID, Amount: decimal.NewFromInt(1200), PaidAt: inWindow(2)},
		{ID: uuid.New(), TailorID: tailorB, StyleID: &f.styleID, Amount: decimal.NewFromInt(800), PaidAt: inWindow(4)},
		{ID: uuid.New(), TailorID: tailorA, StyleID: &f.styleID, Amount: decimal.NewFromInt(999), PaidAt: inWindow(25)},
	}
	require.NoError(t, f.db.Create(&payments).Error)

	got, err := source.TailorExpense(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2000)), "got %s", got.Amount)
	assert.Equal(t, int64(2), got.Payments)

	t.Run("tailor scope", func(t *testing.T) {
		got, err := source.TailorExpense(ctx, analytics.Scope{TailorID: &tailorA}, windowFrom, windowTo)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(1200)), "got %s", got.Amount)
		assert.Equal(t, int64(1), got.Payments)
	})
}

func TestPendingFromTailors(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	tailorID := uuid.New()
	closed := inWindow(4)
	assignments := []models.TailorAssignmentModel{
		{ID: uuid.New(), StyleID: f.styleID, TailorID: tailorID, PcsIssued: 200, PcsReceived: 80, IssuedAt: inWindow(1)},
		{ID: uuid.New(), StyleID: f.styleID, TailorID: tailorID, PcsIssued: 100, PcsReceived: 100, IssuedAt: inWindow(2), ClosedAt: &closed},
		// Issued after the snapshot moment.
		{ID: uuid.New(), StyleID: f.styleID, TailorID: tailorID, PcsIssued: 500, PcsReceived: 0, IssuedAt: inWindow(6)},
	}
	require.NoError(t, f.db.Create(&assignments).Error)

	got, err := source.PendingFromTailors(ctx, f.tenantScope(), inWindow(5))
	require.NoError(t, err)
	assert.Equal(t, analytics.PendingWork{Assignments: 1, Pcs: 120}, got)
}

func TestQCStats(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	inspections := []models.QCInspectionModel{
		{ID: uuid.New(), StyleID: f.styleID, Result: models.QCResultPass, PcsChecked: 50, InspectedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, Result: models.QCResultPass, PcsChecked: 50, InspectedAt: inWindow(3)},
		{ID: uuid.New(), StyleID: f.styleID, Result: models.QCResultPass, PcsChecked: 50, InspectedAt: inWindow(4)},
		{ID: uuid.New(), StyleID: f.styleID, Result: models.QCResultFail, PcsChecked: 50, PcsFailed: 12, InspectedAt: inWindow(5)},
	}
	require.NoError(t, f.db.Create(&inspections).Error)

	got, err := source.QC(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Inspections)
	assert.Equal(t, int64(3), got.Passed)
	assert.Equal(t, int64(1), got.Failed)
	assert.InDelta(t, 75.0, got.PassRate, 0.0001)
}

func TestFabricConsumption(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	records := []models.CuttingRecordModel{
		{ID: uuid.New(), StyleID: f.styleID, Size: "M", Pcs: 100, Meters: decimal.NewFromInt(250), Wastage: decimal.NewFromInt(12), IssuedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, Size: "L", Pcs: 60, Meters: decimal.NewFromInt(150), Wastage: decimal.NewFromInt(8), IssuedAt: inWindow(3)},
	}
	require.NoError(t, f.db.Create(&records).Error)

	got, err := source.FabricConsumption(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.True(t, got.Meters.Equal(decimal.NewFromInt(400)), "got %s", got.Meters)
	assert.True(t, got.Wastage.Equal(decimal.NewFromInt(20)), "got %s", got.Wastage)
}

func TestEfficiency(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.CuttingRecordModel{
		ID: uuid.New(), StyleID: f.styleID, Size: "M", Pcs: 200, IssuedAt: inWindow(1),
	}).Error)

	done1 := inWindow(3)
	done2 := inWindow(5)
	jobs := []models.ProductionJobModel{
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 100, DefectPcs: 5, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &done1},
		{ID: uuid.New(), StyleID: f.styleID, Pcs: 60, DefectPcs: 3, Rework: true, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &done2},
	}
	require.NoError(t, f.db.Create(&jobs).Error)

	got, err := source.Efficiency(ctx, f.tenantScope(), windowFrom, windowTo)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, got.YieldRate, 0.0001)
	assert.InDelta(t, 50.0, got.ReworkRate, 0.0001)
	assert.InDelta(t, 5.0, got.DefectRate, 0.0001)
}

func TestGroupedTotals(t *testing.T) {
	f := setupSourceFixture(t)
	source := NewGormMetricSource(f.db)
	ctx := context.Background()

	tailorA := uuid.New()
	tailorB := uuid.New()
	done := inWindow(3)
	jobs := []models.ProductionJobModel{
		{ID: uuid.New(), StyleID: f.styleID, TailorID: &tailorA, Pcs: 140, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &done},
		{ID: uuid.New(), StyleID: f.styleID, TailorID: &tailorB, Pcs: 90, Status: models.JobStatusCompleted, AssignedAt: inWindow(1), CompletedDate: &done},
	}
	require.NoError(t, f.db.Create(&jobs).Error)

	records := []models.CuttingRecordModel{
		{ID: uuid.New(), StyleID: f.styleID, Size: "M", Pcs: 120, Meters: decimal.NewFromInt(300), IssuedAt: inWindow(2)},
		{ID: uuid.New(), StyleID: f.styleID, Size: "L", Pcs: 80, Meters: decimal.NewFromInt(200), IssuedAt: inWindow(3)},
		{ID: uuid.New(), StyleID: f.otherStyleID, Size: "M", Pcs: 500, Meters: decimal.NewFromInt(900), IssuedAt: inWindow(2)},
	}
	require.NoError(t, f.db.Create(&records).Error)

	pcsCompleted, ok := analytics.MetricByName("pcsCompleted")
	require.True(t, ok)
	cuttingReceived, ok := analytics.MetricByName("cuttingReceived")
	require.True(t, ok)
	fabricConsumed, ok := analytics.MetricByName("fabricConsumed")
	require.True(t, ok)

	t.Run("by tailor", func(t *testing.T) {
		totals, err := source.GroupedTotals(ctx, f.tenantScope(), pcsCompleted, analytics.DimensionTailor, windowFrom, windowTo)
		require.NoError(t, err)
		require.Len(t, totals, 2)
		require.NotNil(t, totals[0].Key, "tailor keys resolve to uuids")
		assert.Equal(t, tailorA, *totals[0].Key)
		assert.Equal(t, 140.0, totals[0].Value)
		assert.Equal(t, 90.0, totals[1].Value)
	})

	t.Run("by size", func(t *testing.T) {
		totals, err := source.GroupedTotals(ctx, f.tenantScope(), cuttingReceived, analytics.DimensionSize, windowFrom, windowTo)
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "M", totals[0].Text)
		assert.Equal(t, 120.0, totals[0].Value)
		assert.Equal(t, "L", totals[1].Text)
		assert.Equal(t, 80.0, totals[1].Value)
	})

	t.Run("by fabric without tenant filter", func(t *testing.T) {
		totals, err := source.GroupedTotals(ctx, analytics.Scope{}, fabricConsumed, analytics.DimensionFabric, windowFrom, windowTo)
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "Wool", totals[0].Text)
		assert.Equal(t, 900.0, totals[0].Value)
		assert.Equal(t, "Cotton", totals[1].Text)
		assert.Equal(t, 500.0, totals[1].Value)
	})

	t.Run("unsupported combination", func(t *testing.T) {
		totals, err := source.GroupedTotals(ctx, f.tenantScope(), pcsCompleted, analytics.DimensionStyle, windowFrom, windowTo)
		require.NoError(t, err)
		assert.Empty(t, totals)
	})
}

// Samples and Shipments lean on EXTRACT(EPOCH ...), so their post-scan
// arithmetic is exercised against a mocked postgres connection.

func newMockSource(t *testing.T) (*GormMetricSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, _ := newMockDatabase(t)
	return NewGormMetricSource(db.DB), mock
}

func TestSamplesTurnaround(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM "sample_versions"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"requested", "submitted", "approved", "rejected", "tat_sum_days", "tat_count"},
		).AddRow(4, 3, 2, 1, 6.0, 2))

	got, err := source.Samples(context.Background(), analytics.Scope{}, windowFrom, windowTo)
	require.NoError(t, err)

	assert.Equal(t, int64(4), got.Requested)
	assert.Equal(t, int64(3), got.Submitted)
	assert.Equal(t, int64(2), got.TatSamples)
	assert.InDelta(t, 3.0, got.AvgTatDays, 0.0001, "turnaround averages only decided versions")
	assert.InDelta(t, 200.0/3.0, got.ApprovalRate, 0.0001, "approval rate over decided versions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSamplesNoneDecided(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM "sample_versions"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"requested", "submitted", "approved", "rejected", "tat_sum_days", "tat_count"},
		).AddRow(5, 2, 0, 0, 0.0, 0))

	got, err := source.Samples(context.Background(), analytics.Scope{}, windowFrom, windowTo)
	require.NoError(t, err)

	assert.Zero(t, got.AvgTatDays)
	assert.Zero(t, got.ApprovalRate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentsPunctuality(t *testing.T) {
	source, mock := newMockSource(t)

	// Five shipments, one without a promised date: it counts in the total
	// but in neither the on-time nor the late column.
	mock.ExpectQuery(`(?s)SELECT.*promised_date IS NOT NULL.*FROM "shipments"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "on_time", "late", "delay_sum_days"},
		).AddRow(5, 2, 2, 6.0))

	got, err := source.Shipments(context.Background(), analytics.Scope{}, windowFrom, windowTo)
	require.NoError(t, err)

	assert.Equal(t, int64(5), got.Count)
	assert.Equal(t, int64(2), got.OnTime)
	assert.Equal(t, int64(2), got.Late)
	assert.InDelta(t, 50.0, got.LateRate, 0.0001, "unpromised shipments stay out of the denominator")
	assert.InDelta(t, 3.0, got.AvgDelayDays, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentsNoneLate(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM "shipments"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"count", "on_time", "late", "delay_sum_days"},
		).AddRow(3, 3, 0, 0.0))

	got, err := source.Shipments(context.Background(), analytics.Scope{}, windowFrom, windowTo)
	require.NoError(t, err)

	assert.Zero(t, got.LateRate)
	assert.Zero(t, got.AvgDelayDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
