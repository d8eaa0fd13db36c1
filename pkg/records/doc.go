// Package records manages the clinical entities: doctors, patients and the
// mappings between them.
//
// Doctors are shared reference data. Patients and mappings are attributed to
// the principal that created them; non-admin callers only see their own.
package records
