// Package resp implements the frame codec of the rKV wire protocol, a subset of
// the Redis serialization protocol (RESP2).
//
// Frame Format:
//
//	+<text>\r\n                 Simple
//	-<text>\r\n                 Error
//	:<digits>\r\n               Integer (unsigned)
//	$<len>\r\n<bytes>\r\n       Bulk
//	$-1\r\n                     Null
//	*<count>\r\n<frames...>     Array (decode only)
//
// Decoding is split into two passes over the same bytes. Check walks the buffer
// and reports the size of the first frame, or ErrIncomplete if more bytes are
// needed. Only when Check succeeds does Parse build the Frame value. This makes
// decoding over partial reads safe: a frame split across any number of reads
// decodes exactly as if it had arrived in one piece.
//
// Key Components:
//
//   - Frame: the tagged union of frame variants (Simple, Error, Integer, Bulk,
//     Null, Array).
//
//   - Connection: wraps a byte stream with an accumulation buffer for reading
//     and a buffered writer for writing. ReadFrame and WriteFrame are the only
//     way the server touches the wire.
//
//   - WriteDecimal: renders an unsigned integer followed by \r\n using a fixed
//     stack buffer. It is shared by integer values and length prefixes.
//
// Encoding an Array frame is not supported and fails with ErrUnimplemented.
// Clients send requests with Connection.WriteCommand instead, which produces
// the flat `*N` + N bulk strings request form.
package resp
