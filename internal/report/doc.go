// Package report defines the obstetric ultrasound record, its schema adapter,
// field patches, validation rules, and clinical warnings.
//
// Everything here is pure: no storage, clock, or logging. The lifecycle
// package owns state transitions and persistence; the document package owns
// rendering.
package report
