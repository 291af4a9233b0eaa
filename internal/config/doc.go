// Package config loads the bridge's process configuration.
//
// # Overview
//
// Process settings (where data lives, logging, transport tuning, timer
// periods, the agent's local endpoint) are kept apart from the session
// store. The store holds what the user changes at runtime: server URL, auth
// token, device folders and preferences. This package holds what an operator
// sets before starting the agent.
//
// # Sources
//
// Load layers three sources, later ones winning:
//
//  1. Built-in defaults
//  2. A YAML file: the explicit path, else $BRIDGE_CONFIG, else
//     ~/.config/industria-bridge/config.yaml
//  3. BRIDGE_* environment variables (a .env file in the working directory
//     is loaded first)
//
// A missing file is not an error. Environment keys use a double underscore
// between sections:
//
//	BRIDGE_DATA_DIR=/srv/bridge
//	BRIDGE_LOG__LEVEL=debug
//	BRIDGE_REMOTE__TIMEOUT=45s
//	BRIDGE_STATUS__ADDR=127.0.0.1:7480
//
// # Example file
//
//	data_dir: ~/.config/industria-bridge
//	downloads_dir: ~/Downloads
//	log:
//	  level: info
//	  format: console
//	remote:
//	  timeout: 30s
//	breaker:
//	  failures: 5
//	  timeout: 1m
//	timers:
//	  license_interval: 1h
//	  update_interval: 6h
//	  update_initial_delay: 10s
//	status:
//	  addr: 127.0.0.1:47455
//	journal:
//	  enabled: true
//
// # Derived paths
//
//   - Store file: <data_dir>/config.toml unless store_path is set
//   - Journal: <data_dir>/journal.sqlite unless journal.path is set
//   - Log file: <data_dir>/logs/bridge.log
//   - Agent file: agent.json beside the store file
//
// Tilde expansion is applied to every path. The decoded struct is checked
// with validator tags before it is returned.
package config
