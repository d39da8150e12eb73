// Package service holds small, dependency-free helpers shared by every
// component: service descriptors for orchestration, retry policies, list
// limit clamping, and generic start/complete observation hooks.
package service

// Layer describes the architectural slice a service belongs to.
type Layer string

const (
	LayerIngress  Layer = "ingress"
	LayerAntifraud Layer = "antifraud"
	LayerEngine   Layer = "engine"
	LayerData     Layer = "data"
	LayerAdmin    Layer = "admin"
)

// Descriptor advertises a service's placement and capabilities. It is
// optional and does not change runtime behavior, but allows the lifecycle
// manager and /internal diagnostics to reason about modules consistently.
type Descriptor struct {
	Name         string
	Domain       string
	Layer        Layer
	Capabilities []string
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
