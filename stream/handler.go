package stream

// Handler receives dispatched chunks from a Codec's read loop (C6 "Handler
// chain"). Each method corresponds to one dispatch outcome; a handler that
// only cares about a subset of events embeds BaseHandler and overrides the
// rest. A non-nil return from any method aborts the read loop once every
// handler registered before it has also been given the chunk — Close still
// runs on every handler regardless.
type Handler interface {
	// StreamDesc receives the stream header document (v2 id 0 / v3 |Sx|).
	StreamDesc(doc []byte) error
	// PktDesc receives a legacy packet descriptor, or a v3 header document
	// whose root element describes a packet rather than a dataset.
	PktDesc(id int, doc []byte) error
	// PktRedef is invoked on every registered handler, carrying the new
	// descriptor document, before the old descriptor for id is freed.
	PktRedef(id int, doc []byte) error
	// DsDesc receives a v3 header document whose root element describes a
	// dataset.
	DsDesc(id int, doc []byte) error
	// PktData receives a legacy binary data chunk for a plane-based packet.
	PktData(id int, payload []byte) error
	// DsData receives a v3 binary data chunk for a codec-driven dataset.
	DsData(id int, payload []byte) error
	// Comment receives an out-of-band progress/log document.
	Comment(doc []byte) error
	// Exception receives an out-of-band fatal-error document.
	Exception(doc []byte) error
	// Extension receives an extension-chunk (T=X) attachment, already
	// decompressed with whichever codec its payload marker named. id is -1
	// when the chunk carries no packet association.
	Extension(id int, payload []byte) error
	// Close is invoked once, after the read loop ends for any reason.
	Close() error
}

// BaseHandler implements Handler with no-op methods, so a concrete handler
// need only override the callbacks it cares about.
type BaseHandler struct{}

func (BaseHandler) StreamDesc(doc []byte) error        { return nil }
func (BaseHandler) PktDesc(id int, doc []byte) error    { return nil }
func (BaseHandler) PktRedef(id int, doc []byte) error   { return nil }
func (BaseHandler) DsDesc(id int, doc []byte) error     { return nil }
func (BaseHandler) PktData(id int, payload []byte) error { return nil }
func (BaseHandler) DsData(id int, payload []byte) error  { return nil }
func (BaseHandler) Comment(doc []byte) error            { return nil }
func (BaseHandler) Exception(doc []byte) error          { return nil }
func (BaseHandler) Extension(id int, payload []byte) error { return nil }
func (BaseHandler) Close() error                        { return nil }

// maxHandlers is the handler-chain limit C6 names ("Up to 10 registered
// handlers per stream object").
const maxHandlers = 10
