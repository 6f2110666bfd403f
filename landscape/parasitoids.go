package landscape

// ParasitoidDensitySource supplies local parasitoid density for the
// mechanistic parasitism variant. The mechanistic population dynamics live
// outside this model; plugging in a real grid switches the female logic
// from the time-open probability model to density-driven risk.
type ParasitoidDensitySource interface {
	// Density returns parasitoid counts per species at a landscape point.
	Density(xM, yM int) []float64
}

// ZeroParasitoids is the default source: no parasitoid population, so the
// probability-based parasitism model governs.
type ZeroParasitoids struct{}

// Density always returns nil.
func (ZeroParasitoids) Density(xM, yM int) []float64 {
	return nil
}
