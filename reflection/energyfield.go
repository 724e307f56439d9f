// Package reflection implements the Monte-Carlo reflections simulator:
// tracing rays through a geom.Queryable scene to build a directional,
// banded, time-binned EnergyField, then turning that field into a
// time-domain ImpulseResponse or a parametric T60 estimate.
package reflection

// NumBands is the fixed frequency-band count every energy field and
// reconstruction carries: low, mid, high.
const NumBands = 3

// EnergyField is a [channels x bands x timeBins] array of non-negative
// floats: channels are SH coefficients (ACN order) of the incoming
// energy's direction up to the simulation order, and one time bin is
// BinDuration seconds wide.
type EnergyField struct {
	Order       int
	TimeBins    int
	BinDuration float64

	channels int
	data     []float64
}

// NewEnergyField allocates a zeroed field for (duration, order),
// binWidth seconds per time bin.
func NewEnergyField(duration float64, binWidth float64, order int) *EnergyField {
	bins := int(duration/binWidth) + 1
	channels := (order + 1) * (order + 1)
	return &EnergyField{
		Order:       order,
		TimeBins:    bins,
		BinDuration: binWidth,
		channels:    channels,
		data:        make([]float64, channels*NumBands*bins),
	}
}

// Channels returns the SH channel count, (order+1)^2.
func (f *EnergyField) Channels() int { return f.channels }

// RawData returns the field's flat backing array, for serialization.
// The returned slice aliases the field's storage; callers must not
// mutate it.
func (f *EnergyField) RawData() []float64 { return f.data }

// NewEnergyFieldFromRaw rebuilds a field from its shape and a flat data
// array previously returned by RawData, for deserialization. len(data)
// must equal channels*NumBands*timeBins.
func NewEnergyFieldFromRaw(order, timeBins int, binDuration float64, data []float64) *EnergyField {
	channels := (order + 1) * (order + 1)
	return &EnergyField{
		Order:       order,
		TimeBins:    timeBins,
		BinDuration: binDuration,
		channels:    channels,
		data:        data,
	}
}

func (f *EnergyField) index(channel, band, bin int) int {
	return (channel*NumBands+band)*f.TimeBins + bin
}

// At returns the energy value for a channel/band/bin triple.
func (f *EnergyField) At(channel, band, bin int) float64 {
	return f.data[f.index(channel, band, bin)]
}

// Accumulate adds delta into the given channel/band/bin cell.
func (f *EnergyField) Accumulate(channel, band, bin int, delta float64) {
	f.data[f.index(channel, band, bin)] += delta
}

// Clear zeroes every cell.
func (f *EnergyField) Clear() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// Add accumulates src into f in place; both must share shape.
func (f *EnergyField) Add(src *EnergyField) {
	for i := range f.data {
		f.data[i] += src.data[i]
	}
}

// Scale multiplies every cell by s.
func (f *EnergyField) Scale(s float64) {
	for i := range f.data {
		f.data[i] *= s
	}
}

// ScaleAccumulate adds src*scale into f in place.
func (f *EnergyField) ScaleAccumulate(src *EnergyField, scale float64) {
	for i := range f.data {
		f.data[i] += src.data[i] * scale
	}
}

// CopyFrom overwrites f's cells with src's.
func (f *EnergyField) CopyFrom(src *EnergyField) {
	copy(f.data, src.data)
}

// Swap exchanges the contents of a and b in place (same shape).
func Swap(a, b *EnergyField) {
	a.data, b.data = b.data, a.data
}
