// Package models defines the persisted entities of CareLink and the read
// views built from them.
//
// Users carry a Role; USER accounts additionally carry a PermissionSet that
// gates the four capabilities. Patients and mappings record the id of the
// account that created them. Doctors are shared reference data.
//
// JSON encodings use camelCase field names and never include password hashes.
package models
