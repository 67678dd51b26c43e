package analytics

// MetricKind distinguishes metrics that can be summed across buckets from
// point-in-time snapshots that must be recomputed at the target bucket end.
type MetricKind string

const (
	// MetricAdditive metrics are sums over bucket events and may be
	// combined across buckets.
	MetricAdditive MetricKind = "additive"
	// MetricSnapshot metrics describe outstanding state as of bucket end
	// and must never be summed across buckets.
	MetricSnapshot MetricKind = "snapshot"
)

// Metric describes one queryable metric: how it rolls up, how trend
// direction should be judged, and how to read its scalar value out of a
// MetricSet.
type Metric struct {
	Name          string
	Label         string
	Unit          string
	Kind          MetricKind
	LowerIsBetter bool
	Value         func(MetricSet) float64
}

// IsSnapshot reports whether the metric is a point-in-time snapshot.
func (m Metric) IsSnapshot() bool {
	return m.Kind == MetricSnapshot
}

var metrics = []Metric{
	{Name: "cuttingReceived", Label: "Cutting Received", Unit: "pcs", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.CuttingReceived.Pcs) }},
	{Name: "cuttingOrders", Label: "Cutting Orders", Unit: "orders", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.CuttingReceived.Orders) }},
	{Name: "inProduction", Label: "In Production", Unit: "pcs", Kind: MetricSnapshot,
		Value: func(s MetricSet) float64 { return float64(s.InProduction.Pcs) }},
	{Name: "pcsShipped", Label: "Pcs Shipped", Unit: "pcs", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.PcsShipped) }},
	{Name: "pcsCompleted", Label: "Pcs Completed", Unit: "pcs", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.PcsCompleted) }},
	{Name: "revenue", Label: "Revenue", Unit: "currency", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { f, _ := s.Revenue.Amount.Float64(); return f }},
	{Name: "expectedReceivable", Label: "Expected Receivable", Unit: "currency", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { f, _ := s.ExpectedReceivable.Amount.Float64(); return f }},
	{Name: "tailorExpense", Label: "Tailor Expense", Unit: "currency", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { f, _ := s.TailorExpense.Amount.Float64(); return f }},
	{Name: "pendingFromTailors", Label: "Pending From Tailors", Unit: "pcs", Kind: MetricSnapshot, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return float64(s.PendingFromTailors.Pcs) }},
	{Name: "samplesRequested", Label: "Samples Requested", Unit: "samples", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.Samples.Requested) }},
	{Name: "sampleApprovalRate", Label: "Sample Approval Rate", Unit: "%", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return s.Samples.ApprovalRate }},
	{Name: "sampleAvgTat", Label: "Avg Sample TAT", Unit: "days", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return s.Samples.AvgTatDays }},
	{Name: "qcPassRate", Label: "QC Pass Rate", Unit: "%", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return s.QC.PassRate }},
	{Name: "shipmentCount", Label: "Shipments", Unit: "shipments", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return float64(s.Shipments.Count) }},
	{Name: "lateShipmentRate", Label: "Late Shipment Rate", Unit: "%", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return s.Shipments.LateRate }},
	{Name: "avgShipmentDelay", Label: "Avg Shipment Delay", Unit: "days", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return s.Shipments.AvgDelayDays }},
	{Name: "yieldRate", Label: "Yield Rate", Unit: "%", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { return s.Efficiency.YieldRate }},
	{Name: "reworkRate", Label: "Rework Rate", Unit: "%", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return s.Efficiency.ReworkRate }},
	{Name: "defectRate", Label: "Defect Rate", Unit: "%", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { return s.Efficiency.DefectRate }},
	{Name: "fabricConsumed", Label: "Fabric Consumed", Unit: "m", Kind: MetricAdditive,
		Value: func(s MetricSet) float64 { f, _ := s.FabricConsumption.Meters.Float64(); return f }},
	{Name: "fabricWastage", Label: "Fabric Wastage", Unit: "m", Kind: MetricAdditive, LowerIsBetter: true,
		Value: func(s MetricSet) float64 { f, _ := s.FabricConsumption.Wastage.Float64(); return f }},
}

var metricsByName = func() map[string]Metric {
	idx := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		idx[m.Name] = m
	}
	return idx
}()

// MetricByName resolves a query-facing metric name. The second return is
// false for unknown names; callers degrade to empty results rather than
// erroring so dashboards survive client/server drift.
func MetricByName(name string) (Metric, bool) {
	m, ok := metricsByName[name]
	return m, ok
}

// AllMetrics returns the registry in declaration order.
func AllMetrics() []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return out
}

// RecomputeRates rebuilds every derived ratio in the set from its summed
// numerators and denominators. Query paths that sum rows across buckets or
// styles must call this instead of averaging stored rates.
func (s *MetricSet) RecomputeRates() {
	decided := s.Samples.Approved + s.Samples.Rejected
	s.Samples.ApprovalRate = Ratio(s.Samples.Approved, decided)
	s.QC.PassRate = Ratio(s.QC.Passed, s.QC.Inspections)
	s.Shipments.LateRate = Ratio(s.Shipments.Late, s.Shipments.OnTime+s.Shipments.Late)
	s.Efficiency.YieldRate = RatioF(float64(s.PcsCompleted), float64(s.CuttingReceived.Pcs))
}
