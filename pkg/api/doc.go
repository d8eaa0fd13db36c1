// Package api exposes CareLink over HTTP.
//
// All routes live under /api. Login and registration are public; every other
// route requires a bearer token and is additionally gated by role or
// capability:
//
//	POST   /api/auth/login               public, rate limited per client IP
//	POST   /api/auth/register            public, always 403
//	GET    /api/auth/profile             any caller
//	PUT    /api/auth/profile             any caller
//	POST   /api/auth/change-password     any caller
//	*      /api/admin/...                admins only
//	POST   /api/patients                 manage-patients
//	GET    /api/patients[/{id}]          any caller, scoped to own records
//	PUT    /api/patients/{id}            manage-patients
//	DELETE /api/patients/{id}            manage-patients
//	...    /api/doctors                  manage-doctors for writes
//	POST   /api/mappings                 create-mappings
//	GET    /api/mappings[/{patientId}]   view-mappings
//	...    /api/issues                   any caller; PUT is admin only
//
// Errors are written as {"error": message, "code": code}.
package api
