// Package facts defines the patient evidence model consumed by the gate engine.
//
// A PatientFacts value is an ordered list of timestamped, source-typed text
// blocks plus a small map of scalar facts such as the arrival time. Values are
// treated as immutable for the duration of an evaluation and may be shared
// across concurrent evaluations without locking.
//
// # Loading
//
// LoadPatient and DecodePatient read the segmented evidence format (YAML or
// JSON):
//
//	patient_id: "P-0001"
//	facts:
//	  arrival_time: "2026-01-15T10:00:00"
//	evidence:
//	  - source_type: IMAGING
//	    timestamp: "2026-01-15 11:30"
//	    text: "CT chest: no pneumothorax."
//	    pointer: {file: "imaging.txt", line: "12"}
//
// Converting raw hospital exports into this shape happens upstream.
package facts
