// Package commands defines the rosterctl CLI.
//
// Commands
//
//   - list        Print every activity with its schedule and roster
//   - signup      Enroll an email address in an activity
//   - unregister  Withdraw an email address from an activity
//
// The API base URL comes from --api, falling back to API_BASE_URL.
package commands
