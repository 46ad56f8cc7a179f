// Package auth is the authentication core: registration, credential
// checks, access/refresh token issuance and bearer-token identity lookup.
//
// A session has no persisted object beyond the single refresh token stored
// on the user. Logging in overwrites it, Revoke clears it, and Refresh only
// accepts the value currently stored.
package auth
