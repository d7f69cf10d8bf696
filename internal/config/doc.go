// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package config defines the Enlace configuration model and its loader.

Configuration is loaded via Koanf v2 with layered sources, highest wins:

 1. Environment variables (TRACCAR_BASE_URL, MIRROR_DEFAULT_TTL, ...)
 2. Config file (config.yaml, or the path in CONFIG_PATH)
 3. Built-in defaults

Only explicitly mapped environment variables are read; see envTransformFunc
for the full mapping. The result is validated before it is returned, so a
server never starts on a configuration that cannot work.

# Example

	traccar:
	  base_url: https://traccar.example.com
	  email: admin@example.com
	  password: secret
	mirror:
	  default_ttl: 24h
	store:
	  path: /data/enlace

WatchConfigFile supports hot reload; main uses it to pick up logging
changes without a restart.
*/
package config
