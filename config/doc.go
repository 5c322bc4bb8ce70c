// Package config loads the partsource configuration from YAML.
//
// Loading happens in four steps:
//
//  1. Decode: unknown keys are rejected.
//  2. Defaults: zero values are replaced by the documented defaults.
//  3. Resolve: credential and endpoint fields are expanded with strict
//     ${VAR} substitution and secretref:<provider>:<ref> resolution.
//  4. Validate: the first problem is reported with its YAML path.
//
// Durations are written as Go duration strings ("1500ms", "8s") or as a
// plain integer number of milliseconds.
//
// A minimal file:
//
//	observe:
//	  service_name: partsource
//	sources:
//	  providers:
//	    - name: catalog
//	      type: catalog
//	      base_url: https://api.example.com
//	      api_key: secretref:env:CATALOG_API_KEY
package config
