package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// GustDuration is the averaging window, in seconds, that the peak wind
// speeds correspond to.
const GustDuration = 600

// Speeds is a list of wind speeds in m/s. Non-finite values encode as null.
type Speeds []float64

// MarshalJSON implements json.Marshaler.
func (s Speeds) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes as NaN.
func (s *Speeds) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Speeds, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// StationRecord is the peak wind speed table of one station for one
// realization of a scenario.
type StationRecord struct {
	ScenarioID   string    `json:"scenario_id"`
	Realization  int       `json:"realization"`
	StationID    string    `json:"station_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Z0           float64   `json:"z0"`
	Heights      []float64 `json:"heights"`
	PeakSpeeds   Speeds    `json:"peak_wind_speed"`
	GustDuration int       `json:"gust_duration_s"`
	Finite       bool      `json:"finite"`
	SimulatedAt  time.Time `json:"simulated_at"`
}

// NewStationRecord snapshots the peaks of st.
func NewStationRecord(scenarioID string, realization int, st *Station, heights Heights) StationRecord {
	var peaks []float64
	if st.peaks != nil {
		peaks = st.peaks.Values()
	}
	finiteAll := true
	for _, v := range peaks {
		if !finite(v) {
			finiteAll = false
			break
		}
	}
	return StationRecord{
		ScenarioID:   scenarioID,
		Realization:  realization,
		StationID:    st.ID,
		Latitude:     st.Location.Lat,
		Longitude:    st.Location.Lon,
		Z0:           st.Z0,
		Heights:      append([]float64(nil), heights...),
		PeakSpeeds:   peaks,
		GustDuration: GustDuration,
		Finite:       finiteAll,
		SimulatedAt:  clock.Now().UTC(),
	}
}

// OutputMessage is the serialized form destined for the sink.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeStationRecord encodes a record for the sink topic, keyed by
// station ID.
func SerializeStationRecord(rec StationRecord) (OutputMessage, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return OutputMessage{}, err
	}
	return OutputMessage{
		Key:   []byte(rec.StationID),
		Value: value,
		Headers: map[string]string{
			"scenario_id":  rec.ScenarioID,
			"realization":  strconv.Itoa(rec.Realization),
			"simulated_at": rec.SimulatedAt.Format(time.RFC3339),
		},
	}, nil
}
