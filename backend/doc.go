// Package backend holds authoritative searchers a proximity.Cache can sit in
// front of: an exact in-process searcher (memory) and a Qdrant client
// (qdrant).
package backend
