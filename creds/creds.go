// Package creds resolves the credentials backend calls require: the API
// key every cloud call needs and the session cookie animation and video
// uploads additionally need.
package creds

import (
	"fmt"
	"os"
)

// Environment variables consulted when flags don't supply a credential.
const (
	EnvAPIKey = "MACADAM_API_KEY"
	EnvCookie = "MACADAM_COOKIE"
)

// Credentials holds the resolved secrets. Zero fields mean the
// credential is absent; callers use the Require helpers to fail fast
// before any network activity.
type Credentials struct {
	APIKey string
	Cookie string
}

// Resolve builds credentials from an optional flag value, falling back
// to the environment.
func Resolve(flagAPIKey string) Credentials {
	c := Credentials{
		APIKey: flagAPIKey,
		Cookie: os.Getenv(EnvCookie),
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	return c
}

// RequireAPIKey fails when no API key is available.
func (c Credentials) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("an API key is required: pass --api-key or set %s", EnvAPIKey)
	}
	return nil
}

// RequireCookie fails when no session cookie is available. Animation and
// video uploads go through the user-authenticated endpoint, which the
// API key alone cannot reach.
func (c Credentials) RequireCookie() error {
	if c.Cookie == "" {
		return fmt.Errorf("a session cookie is required for animation and video uploads: set %s", EnvCookie)
	}
	return nil
}
