// Package adapters groups the reference provider adapters.
//
//   - catalog: a JSON catalog API over HTTP.
//   - scrape: product listings extracted from HTML pages.
//   - gemini: comparisons generated by a Gemini model.
//   - fixture: a static YAML catalog for local use and tests.
//
// Each adapter maps its backend's failures onto provider error kinds so the
// fallback layer can decide on retries and health without knowing the
// backend.
package adapters
