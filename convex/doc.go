// Package convex calls functions of a Convex deployment over its HTTP API.
package convex
