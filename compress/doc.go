// Package compress provides compression and decompression codecs for das2stream chunk
// payloads.
//
// The wire format (C1 §4.1) mandates exactly one compression mode: zlib (RFC 1950),
// entered by a stream header's compression="deflate" attribute and applied to every
// payload after the header. ZlibCompressor implements that mode.
//
// The remaining codecs (Zstd, S2, LZ4, and NoOp) are not part of the standard wire
// grammar; they back the `extension` chunk kind (T=X, see section.ChunkExtra), which
// lets a producer attach a side-channel payload (e.g. a cached spectral estimate)
// compressed with whichever algorithm suits it, selected by the same
// format.CompressionType enum used on the wire-standard path. A reader that does not
// recognize an extension payload's algorithm treats it as pass-through (C6 §4.6 usage
// taxonomy) and relays it unchanged.
//
//	codec, err := compress.CreateCodec(format.CompressionZlib, "stream header")
//	compressed, err := codec.Compress(payload)
//	original, err := codec.Decompress(compressed)
//
// All codecs implement the same Compressor/Decompressor/Codec interfaces so the
// transport and stream packages never branch on concrete type.
package compress
