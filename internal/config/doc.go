// Package config handles configuration loading for the console.
//
// Configuration is loaded from a YAML file with ${VAR} environment
// variable expansion applied to the raw bytes before parsing, so secrets
// like the state-signing key can live outside the file:
//
//	auth:
//	  state_secret: "${BURROW_STATE_SECRET}"
//
// Sections:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://vpn.example.com"  # used for OAuth2 redirects
//	database:
//	  path: "/var/lib/burrow/console.db"
//	auth:
//	  state_secret: "${BURROW_STATE_SECRET}"  # min 32 bytes
//	  session_duration: "12h"
//	vpn:
//	  service_name: "openvpn-server@server"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Load validates the state secret length, fills defaults for everything
// optional, and parses durations with time.ParseDuration.
package config
