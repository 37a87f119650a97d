package bitvec

// Options configures a Serializer.
type Options struct {
	// CompressionLevel selects payload packing aggressiveness (0-4):
	// 0-2 emit raw Bit payloads, 3 packs them with lz4, 4 with zstd.
	// Gap payloads are always delta-varint encoded.
	CompressionLevel int

	// Logger receives debug-level serialization stats. Defaults to a noop
	// logger.
	Logger *Logger
}

// DefaultOptions are the options used when none are supplied.
var DefaultOptions = Options{
	CompressionLevel: DefaultCompressionLevel,
}

// WithCompressionLevel sets the payload packing level (0-4).
func WithCompressionLevel(level int) func(o *Options) {
	return func(o *Options) {
		o.CompressionLevel = level
	}
}

// WithLogger sets the logger.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}
