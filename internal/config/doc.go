// Package config provides configuration management for linkctl.
//
// Configuration is loaded from several YAML sources and merged in order,
// with later sources overriding earlier ones:
//
//  1. Default configuration (built into the binary)
//  2. User configuration (~/.config/linkctl/config.yaml)
//  3. Project configuration (./.linkctl/config.yaml)
//
// Passing --config to `linkctl serve` replaces layers 2 and 3 with a single file.
//
// # Configuration Structure
//
//	globalSettings:
//	  backend: docker          # or "kubernetes"
//	  logLevel: info
//	  logFormat: text          # or "json"
//
//	server:
//	  host: localhost
//	  port: 9090
//	  proxyPrefix: /links/proxy
//
//	kubernetes:
//	  context: ""              # kubeconfig context, empty uses the current one
//	  namespace: default
//	  labelKey: projectID
//
//	reconcile:
//	  pollInterval: 5s
//	  pollTimeout: 10m
//	  nativeRuntimes: [nodejs, spring, swift]
//	  linkFileName: .env
//	  defaultStartMode: run
//
//	projects:
//	  - id: a1b2
//	    name: frontend
//	    type: nodejs
//	    host: localhost
//	    internalPort: 3000
//	    locationOnDisk: /work/frontend
//	    container: frontend
//	    state: running
//
// Projects merge by id; a project defined in a later layer replaces the
// earlier definition as a whole.
package config
