// Package factory instantiates pluggable modules from configuration. A module
// is declared by a type string and a map of raw settings:
//
//	sinks:
//	  - type: influx
//	    conf:
//	      url: http://localhost:8086
//	      bucket: plans
//
// Packages providing implementations register a Factory under the type name
// from an init function; the factory decodes the settings with Decode and
// returns the concrete module.
package factory
