// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package mirror manages tokenized public links that expose a single device's
live position without authentication, and the local device stubs they
reference.

A link is a 48-character token bound to one device with a creation and
expiry instant. It grants access while unrevoked and unexpired; activity is
re-evaluated on every resolution, so a link that expires or is revoked
mid-stream is cut off on the viewer's next tick. Unknown, expired and
revoked tokens are deliberately indistinguishable to callers.

Links and device stubs persist in BadgerDB so issued URLs keep working
across restarts. A supervised cleanup loop purges links past expiry;
revoked-but-unexpired records are kept until then so they still answer
revocation checks.
*/
package mirror
