// Package iox provides small I/O cleanup helpers.
package iox

import "io"

// DiscardClose closes c, dropping the error. Meant for deferred closes
// of response bodies and similar resources where a close failure is
// unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }
