// Package model defines the core data types shared across proximity packages.
//
// These types are intentionally minimal and dependency-free so they can be
// imported by the index, store and eviction packages without creating cycles.
package model
