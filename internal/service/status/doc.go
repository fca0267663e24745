// Package status implements the garage-status client: it finds a sentinel,
// fetches its status report and health, and prints them once or repeatedly.
package status
