// Package secret resolves API keys and other credentials referenced from
// configuration, so key material never lives in config files.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:GEMINI_API_KEY
//   - Inline use:  Bearer secretref:file:gemini-token
package secret
