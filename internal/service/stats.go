// Package service holds the logic that sits between handlers and the
// store: aggregation over visitor records and publishing of domain events.
package service

import "github.com/iliyamo/visitor-tracker/internal/model"

// ComputeStats counts visitors per browser, device, country and city in a
// single pass.  A visitor without one of those fields is counted under
// model.Undefined, so every breakdown sums to TotalVisitors.
func ComputeStats(visitors []model.Visitor) model.Stats {
	stats := model.NewStats()
	stats.TotalVisitors = len(visitors)
	for _, v := range visitors {
		stats.Browsers[v.Label(model.FieldBrowser)]++
		stats.Devices[v.Label(model.FieldDeviceType)]++
		stats.Countries[v.Label(model.FieldCountry)]++
		stats.Cities[v.Label(model.FieldCity)]++
	}
	return stats
}
