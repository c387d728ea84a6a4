// Package vitals extracts canonical vitals and labs from evaluation payloads
// whose keys, nesting and value types vary between clients. All key guessing
// lives in the alias tables below.
package vitals

import (
	"strings"

	"github.com/clindx-engine/internal/domain"
)

// Alias tables, in resolution order.
var (
	HeartRateKeys   = []string{"heart_rate", "hr", "pulse"}
	SpO2Keys        = []string{"spo2", "oxygen_saturation"}
	TemperatureKeys = []string{"temperature", "temp", "body_temp"}
	SystolicBPKeys  = []string{"systolic_bp", "systolic", "bp_sys", "blood_pressure_sys"}

	GlucoseKeys     = []string{"glucose", "blood_glucose", "glu"}
	CholesterolKeys = []string{"cholesterol", "chol", "total_cholesterol"}
	RestingBPKeys   = []string{"resting_bp", "trestbps", "resting_blood_pressure"}
)

const bloodPressureKey = "blood_pressure"

// Resolve extracts a VitalsSnapshot from raw. It never fails: fields that
// cannot be resolved are left nil.
func Resolve(raw map[string]any) domain.VitalsSnapshot {
	return domain.VitalsSnapshot{
		HeartRate:   Number(raw, HeartRateKeys...),
		SpO2:        Number(raw, SpO2Keys...),
		Temperature: Number(raw, TemperatureKeys...),
		SystolicBP:  systolic(raw),
	}
}

// ResolveLabs extracts the labs the predictor consumes.
func ResolveLabs(raw map[string]any) domain.LabsSnapshot {
	return domain.LabsSnapshot{
		Glucose:     Number(raw, GlucoseKeys...),
		Cholesterol: Number(raw, CholesterolKeys...),
		RestingBP:   Number(raw, RestingBPKeys...),
	}
}

// systolic tries flat keys, then a nested blood_pressure mapping, then a
// "120/80" blood_pressure string.
func systolic(raw map[string]any) *float64 {
	if _, ok := Lookup(raw, SystolicBPKeys...); ok {
		return Number(raw, SystolicBPKeys...)
	}

	bp, ok := Lookup(raw, bloodPressureKey)
	if !ok {
		return nil
	}

	if nested, ok := AsMapping(bp); ok {
		return Number(nested, "systolic")
	}

	if s, ok := bp.(string); ok && strings.Contains(s, "/") {
		head := strings.TrimSpace(strings.SplitN(s, "/", 2)[0])
		if f, ok := Float(head); ok {
			return &f
		}
	}
	return nil
}
