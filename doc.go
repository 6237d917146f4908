// Package configlib maps typed application configurations to and from
// human-editable YAML (or JSON) documents, preserving the human-facing
// structure of the file: key order, per-field comments, header and footer
// blocks, and field naming conventions.
//
// A configuration is a plain struct; declare it once and get load, save, and
// update operations for free:
//
//	type Server struct {
//	    Host string `comment:"Bind address"`
//	    Port int
//	}
//
//	store, err := configlib.NewStore[Server](
//	    configlib.WithHeader("Server configuration"),
//	)
//	cfg, err := store.Update("config.yml")
//
// Update reconciles an existing file with the current declared shape: values
// the user customized are kept, keys no longer declared are dropped, and
// newly declared keys appear with their defaults. The rewritten file is
// always a canonical reflection of the struct.
//
// Custom member types plug in through converters, registered the same way as
// the bundled time.Time and time.Duration ones:
//
//	store, err := configlib.NewStore[Server](
//	    configlib.WithConverters(configlib.Stdlib(), myConverter),
//	)
//
// Enumerations are declared with Enum, immutable (constructor-built) types
// with RegisterDescriptor.
package configlib
