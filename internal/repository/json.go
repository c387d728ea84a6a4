package repository

import (
	"encoding/json"
	"fmt"

	"github.com/clindx-engine/internal/domain"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// encodeJSON marshals v for a JSON column. Nil values, including typed nil
// maps, become SQL NULL.
func encodeJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// evaluationColumns holds the encoded JSON columns of an evaluation.
type evaluationColumns struct {
	symptoms, vitals, labs, inputData, rawFeatures, diagnosis []byte
}

func encodeEvaluation(e *domain.Evaluation) (*evaluationColumns, error) {
	symptoms := e.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	var cols evaluationColumns
	var err error
	if cols.symptoms, err = json.Marshal(symptoms); err != nil {
		return nil, fmt.Errorf("encoding symptoms: %w", err)
	}
	if cols.vitals, err = encodeJSON(e.Vitals); err != nil {
		return nil, fmt.Errorf("encoding vitals: %w", err)
	}
	if cols.labs, err = encodeJSON(e.Labs); err != nil {
		return nil, fmt.Errorf("encoding labs: %w", err)
	}
	if cols.inputData, err = encodeJSON(e.InputData); err != nil {
		return nil, fmt.Errorf("encoding input_data: %w", err)
	}
	if cols.rawFeatures, err = encodeJSON(e.RawFeatures); err != nil {
		return nil, fmt.Errorf("encoding raw_features: %w", err)
	}
	if e.Diagnosis != nil {
		if cols.diagnosis, err = json.Marshal(e.Diagnosis); err != nil {
			return nil, fmt.Errorf("encoding diagnosis: %w", err)
		}
	}
	return &cols, nil
}

// decode fills the JSON-backed fields of e. Rows written by other clients
// may hold arbitrary JSON in vitals and labs; anything that is not an
// object is kept out of the typed maps.
func (cols *evaluationColumns) decode(e *domain.Evaluation) error {
	if len(cols.symptoms) > 0 {
		if err := json.Unmarshal(cols.symptoms, &e.Symptoms); err != nil {
			return fmt.Errorf("decoding symptoms: %w", err)
		}
	}
	if e.Symptoms == nil {
		e.Symptoms = []string{}
	}

	e.Vitals = decodeObject(cols.vitals)
	e.Labs = decodeObject(cols.labs)

	if len(cols.inputData) > 0 {
		if err := json.Unmarshal(cols.inputData, &e.InputData); err != nil {
			return fmt.Errorf("decoding input_data: %w", err)
		}
	}
	if len(cols.rawFeatures) > 0 {
		if err := json.Unmarshal(cols.rawFeatures, &e.RawFeatures); err != nil {
			return fmt.Errorf("decoding raw_features: %w", err)
		}
	}
	if len(cols.diagnosis) > 0 {
		var d domain.Diagnosis
		if err := json.Unmarshal(cols.diagnosis, &d); err != nil {
			return fmt.Errorf("decoding diagnosis: %w", err)
		}
		e.Diagnosis = &d
	}
	return nil
}

func decodeObject(data []byte) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
