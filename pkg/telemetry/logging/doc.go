// Package logging builds the structured loggers used across the engine,
// batch runner and CLI.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPHI: true,
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	logging.FromContext(ctx, logger).Info("batch started", "patients", n)
//
// # PHI Redaction
//
// With RedactPHI enabled, the handler rewrites the message and every string
// attribute before it is written:
//
//   - MRN: 12345678 → MRN: [REDACTED]
//   - DOB 01/02/1950 → DOB: [REDACTED]
//   - 123-45-6789 → ***-**-****
//   - phone numbers and email addresses
//
// Attributes named mrn, ssn, dob, patient_name, phone, email or address are
// replaced outright regardless of content.
package logging
