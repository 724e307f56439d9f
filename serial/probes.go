package serial

import (
	"fmt"
	"io"

	"github.com/spatialaudio/core/effects"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
	"github.com/spatialaudio/core/reflection"
)

// probeDoc is the wire shape of one probes.Probe.
type probeDoc struct {
	Center geom.Vector3 `msgpack:"center"`
	Radius float64      `msgpack:"radius"`
}

// energyFieldDoc is the wire shape of one reflection.EnergyField.
type energyFieldDoc struct {
	Order       int       `msgpack:"order"`
	TimeBins    int       `msgpack:"time_bins"`
	BinDuration float64   `msgpack:"bin_duration"`
	Data        []float64 `msgpack:"data"`
}

// pathEdgeDoc is the wire shape of one probes.PathEdge.
type pathEdgeDoc struct {
	From          int          `msgpack:"from"`
	To            int          `msgpack:"to"`
	AirAbsorption [3]float64   `msgpack:"air_absorption"`
	Direction     geom.Vector3 `msgpack:"direction"`
	DistanceRatio float64      `msgpack:"distance_ratio"`
}

// probeBatchDoc is the wire shape of a probes.ProbeBatch: its probe
// positions plus every reflections EnergyField and pathing graph baked
// under the identifiers the caller asks WriteProbeBatch to include.
type probeBatchDoc struct {
	Probes      []probeDoc                   `msgpack:"probes"`
	Reflections map[int][]energyFieldDoc     `msgpack:"reflections"` // probe index -> one field per identifier in Identifiers
	Paths       [][]pathEdgeDoc              `msgpack:"paths"`       // one graph per pathing identifier in Identifiers
	Identifiers []probes.BakedDataIdentifier `msgpack:"identifiers"`
}

// WriteProbeBatch frames and writes batch's probe positions and every
// baked payload stored under one of ids.
func WriteProbeBatch(w io.Writer, batch *probes.ProbeBatch, ids []probes.BakedDataIdentifier) error {
	doc := probeBatchDoc{Identifiers: ids}
	for _, p := range batch.Probes() {
		doc.Probes = append(doc.Probes, probeDoc{Center: p.Influence.Center, Radius: p.Influence.Radius})
	}

	doc.Reflections = make(map[int][]energyFieldDoc)
	for idx := range batch.Probes() {
		var fields []energyFieldDoc
		for _, id := range ids {
			if id.Kind != probes.Reflections {
				continue
			}
			payload, ok := batch.Payload(id, idx)
			if !ok {
				continue
			}
			field, ok := payload.(*reflection.EnergyField)
			if !ok {
				continue
			}
			fields = append(fields, energyFieldDoc{
				Order:       field.Order,
				TimeBins:    field.TimeBins,
				BinDuration: field.BinDuration,
				Data:        field.RawData(),
			})
		}
		if len(fields) > 0 {
			doc.Reflections[idx] = fields
		}
	}

	for _, id := range ids {
		if id.Kind != probes.Pathing {
			continue
		}
		payload, ok := batch.Payload(id, -1)
		if !ok {
			doc.Paths = append(doc.Paths, nil)
			continue
		}
		graph, ok := payload.(probes.PathGraph)
		if !ok {
			doc.Paths = append(doc.Paths, nil)
			continue
		}
		var edges []pathEdgeDoc
		for _, e := range graph.Edges {
			edges = append(edges, pathEdgeDoc{
				From:          e.From,
				To:            e.To,
				AirAbsorption: e.Sound.AirAbsorption,
				Direction:     e.Sound.Direction,
				DistanceRatio: e.DistanceRatio,
			})
		}
		doc.Paths = append(doc.Paths, edges)
	}

	return Write(w, KindProbeBatch, doc)
}

// ReadProbeBatch reads a framed probe batch, restoring its probe
// positions (with neighborCacheSize set on the returned batch) and
// re-populating every baked payload the document carries.
func ReadProbeBatch(r io.Reader, neighborCacheSize int) (*probes.ProbeBatch, error) {
	var doc probeBatchDoc
	if err := Read(r, KindProbeBatch, &doc); err != nil {
		return nil, err
	}

	arr := probes.ProbeArray{}
	for _, p := range doc.Probes {
		arr.Probes = append(arr.Probes, probes.Probe{Influence: geom.Sphere{Center: p.Center, Radius: p.Radius}})
	}
	batch := probes.NewProbeBatch(arr, neighborCacheSize)

	reflectionIDs := 0
	pathingIdx := 0
	for _, id := range doc.Identifiers {
		switch id.Kind {
		case probes.Reflections:
			reflectionIDs++
		case probes.Pathing:
			if pathingIdx < len(doc.Paths) {
				var graph probes.PathGraph
				for _, e := range doc.Paths[pathingIdx] {
					graph.Edges = append(graph.Edges, probes.PathEdge{
						From: e.From,
						To:   e.To,
						Sound: effects.PathSound{
							AirAbsorption: e.AirAbsorption,
							Direction:     e.Direction,
						},
						DistanceRatio: e.DistanceRatio,
					})
				}
				batch.SetPayload(id, -1, graph)
			}
			pathingIdx++
		default:
			return nil, fmt.Errorf("serial: unknown baked data kind %d", id.Kind)
		}
	}

	for idx, fields := range doc.Reflections {
		fi := 0
		for _, id := range doc.Identifiers {
			if id.Kind != probes.Reflections {
				continue
			}
			if fi >= len(fields) {
				break
			}
			f := fields[fi]
			field := reflection.NewEnergyFieldFromRaw(f.Order, f.TimeBins, f.BinDuration, f.Data)
			batch.SetPayload(id, idx, field)
			fi++
		}
	}

	return batch, nil
}
