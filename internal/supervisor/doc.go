// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package supervisor builds the suture tree that keeps the long-running parts
of Enlace alive.

The tree has one child layer per concern:

	enlace
	├── ingest-layer        Traccar WebSocket feed
	├── maintenance-layer   expired link cleanup loop
	└── api-layer           HTTP server

A crashed child is restarted by its layer; a layer that exceeds the restart
budget escalates to the root. Supervisor logs flow through the shared
zerolog logger via its slog bridge.
*/
package supervisor
