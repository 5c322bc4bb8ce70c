// Package secret resolves credentials referenced from configuration.
//
// A value is first expanded against the environment with ExpandEnvStrict,
// then every "secretref:<scheme>:<ref>" inside it is replaced by what the
// scheme's Provider returns:
//
//	api_key: secretref:env:CATALOG_API_KEY
//	api_key: secretref:file:gemini.key
//	password: ${REDIS_PASSWORD}
package secret
