// Package api assembles the HTTP surface: passwordless authentication
// (OTP request/verify, token refresh), owner-scoped task CRUD, the
// caller's activity trail, and the operational health and metrics
// endpoints. Handlers stay thin; domain rules live in the auth, tasks
// and audit packages, and every mutation pairs with its audit row in a
// single transaction.
package api
