package model

// Stats is the aggregate served by GET /api/stats.  Each breakdown maps a
// field label (see Visitor.Label) to the number of visitors carrying it.
type Stats struct {
	TotalVisitors int            `json:"totalVisitors"`
	Browsers      map[string]int `json:"browsers"`
	Devices       map[string]int `json:"devices"`
	Countries     map[string]int `json:"countries"`
	Cities        map[string]int `json:"cities"`
}

// NewStats returns zero counts with non-nil breakdowns so they encode as {}.
func NewStats() Stats {
	return Stats{
		Browsers:  map[string]int{},
		Devices:   map[string]int{},
		Countries: map[string]int{},
		Cities:    map[string]int{},
	}
}
