// Package web serves the welcome page: a plain-text greeting built from the current welcome name, and a table of
// the live control connections.
package web
