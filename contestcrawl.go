// Package contestcrawl crawls a paginated contest listing with a real
// browser, extracts structured records from each detail page, and reconciles
// them against a persisted contest store.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, sqlite/, goquery/).
package contestcrawl
