package lanes

// vehicleClasses are the detector labels that occupy a lane queue. Pedestrians
// and aggregate keys such as "total_vehicles" are ignored.
var vehicleClasses = map[string]struct{}{
	"car":        {},
	"bus":        {},
	"truck":      {},
	"motorcycle": {},
	"bike":       {},
}

// DetectionSummary is a detector's per-class count for one lane, e.g.
// {"car": 12, "bus": 3, "person": 2, "total_vehicles": 17}.
type DetectionSummary map[string]int

// VehicleCount sums the vehicle classes, skipping negative entries.
func (d DetectionSummary) VehicleCount() float64 {
	var n int
	for class, c := range d {
		if _, ok := vehicleClasses[class]; ok && c > 0 {
			n += c
		}
	}
	return float64(n)
}
