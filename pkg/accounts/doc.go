// Package accounts manages staff accounts: admin user administration, the
// dashboard summary, and each caller's own profile and password.
//
// Initial and reset passwords are derived from the first name and returned
// to the admin exactly once. The configured super-admin has no stored row,
// so its profile is synthesized and cannot be edited.
package accounts
