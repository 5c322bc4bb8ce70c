// Package provider defines the contract between the fallback core and the
// external backends it aggregates.
//
// Two adapter roles exist:
//
//   - PartSource: a hardware-data backend that can search a catalog and look
//     up a single part by identifier.
//   - Generator: a generative-text backend that writes a comparison of two
//     parts.
//
// Every backend returns NormalizedResult values so the core never depends on
// a vendor's response shape. Failures are reported as *Error values carrying
// an ErrorKind, which drives retry and health decisions:
//
//	return provider.Errorf(provider.KindTransient, "upstream returned %d", code)
//
// Adapters that return plain errors are classified by Classify.
package provider
