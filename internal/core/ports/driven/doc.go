// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Classifier: Sniffs the MIME type of a byte stream (file utility or magic table)
//   - Decoder: Probes where a format's legitimate content ends
//   - DecoderRegistry: Maps MIME subtypes to decoders
//   - Platform: Wiki read and write API
//   - EventQueue: Delivers file change events
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AuditStore: Records processed events. Without it, outcomes are only logged.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or decoder package
package driven
