// Package tracer sets up the Elastic APM agent used to trace control commands and web requests.
package tracer
