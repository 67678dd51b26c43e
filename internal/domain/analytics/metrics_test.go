package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, float64(0), Ratio(5, 0), "zero denominator must resolve to 0")
	assert.Equal(t, float64(50), Ratio(1, 2))
	assert.Equal(t, float64(0), RatioF(3.5, 0))
	assert.InDelta(t, 87.5, RatioF(7, 8), 0.0001)
}

func TestMetricByName(t *testing.T) {
	t.Run("resolves known metrics", func(t *testing.T) {
		m, ok := MetricByName("cuttingReceived")
		require.True(t, ok)
		assert.Equal(t, MetricAdditive, m.Kind)
		assert.False(t, m.LowerIsBetter)

		m, ok = MetricByName("pendingFromTailors")
		require.True(t, ok)
		assert.Equal(t, MetricSnapshot, m.Kind)
		assert.True(t, m.LowerIsBetter)
	})

	t.Run("unknown name not found", func(t *testing.T) {
		_, ok := MetricByName("warpSpeed")
		assert.False(t, ok)
	})

	t.Run("snapshot metrics are tagged", func(t *testing.T) {
		snapshots := 0
		for _, m := range AllMetrics() {
			if m.IsSnapshot() {
				snapshots++
			}
		}
		assert.Equal(t, 2, snapshots, "inProduction and pendingFromTailors")
	})
}

func TestMetricValueExtraction(t *testing.T) {
	set := MetricSet{
		CuttingReceived: OrdersPcs{Orders: 3, Pcs: 500},
		PcsShipped:      120,
		Shipments:       ShipmentStats{Count: 4, Late: 1, OnTime: 3, LateRate: 25},
	}

	m, _ := MetricByName("cuttingReceived")
	assert.Equal(t, float64(500), m.Value(set))

	m, _ = MetricByName("cuttingOrders")
	assert.Equal(t, float64(3), m.Value(set))

	m, _ = MetricByName("lateShipmentRate")
	assert.Equal(t, float64(25), m.Value(set))
}

func TestMetricSet_RecomputeRates(t *testing.T) {
	set := MetricSet{
		CuttingReceived: OrdersPcs{Orders: 2, Pcs: 200},
		PcsCompleted:    150,
		Samples:         SampleStats{Approved: 3, Rejected: 1},
		QC:              QCStats{Inspections: 10, Passed: 9, Failed: 1},
		Shipments:       ShipmentStats{Count: 5, OnTime: 3, Late: 1},
	}
	set.RecomputeRates()

	assert.Equal(t, float64(75), set.Samples.ApprovalRate)
	assert.Equal(t, float64(90), set.QC.PassRate)
	assert.Equal(t, float64(25), set.Shipments.LateRate, "unpromised shipment excluded from denominator")
	assert.Equal(t, float64(75), set.Efficiency.YieldRate)
}

func TestMetricSet_RecomputeRates_ZeroDenominators(t *testing.T) {
	var set MetricSet
	set.RecomputeRates()

	assert.Equal(t, float64(0), set.Samples.ApprovalRate)
	assert.Equal(t, float64(0), set.QC.PassRate)
	assert.Equal(t, float64(0), set.Shipments.LateRate)
	assert.Equal(t, float64(0), set.Efficiency.YieldRate)
}

