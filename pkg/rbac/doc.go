// Package rbac is the CareLink authorization gate.
//
// Two roles exist. ADMIN (including the configured super-admin, which has no
// stored row) passes every check. USER is governed by a per-user permission
// set of four capabilities:
//
//	manage-patients   create, update, delete patients
//	manage-doctors    create, update, delete doctors
//	view-mappings     list patient-doctor mappings
//	create-mappings   create, update, delete mappings
//
// A USER without a stored permission set is denied every capability.
//
// # Usage
//
// As route middleware after authentication:
//
//	gate := rbac.NewGate(store, rbac.WithMetrics(metrics))
//	mw := rbac.NewMiddleware(gate)
//	admin.Use(mw.RequireAdmin())
//	router.Handle("/doctors", mw.RequirePermission(models.CapManageDoctors)(h))
//
// Or inline from a service:
//
//	if err := gate.GuardSelfAction(principal, targetID); err != nil {
//		return err
//	}
package rbac
