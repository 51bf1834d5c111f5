// Package stream implements the das2 stream codec (C6): chunk-tag grammar
// detection, packet framing for both the legacy v2 and current v3 tag forms,
// and dispatch of parsed chunks to a chain of registered Handlers. The codec
// inverts control — callers register handlers and call ReadAll, rather than
// pulling chunks themselves — the same way C8's builder and C9/C10's
// handlers consume a stream.
package stream
