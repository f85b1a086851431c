// Package codec provides JSON encoding/decoding for on-disk node
// state, currently the config package's JSON config file. The version
// is checked on Marshal only; it is not written into the output.
package codec

import (
	"encoding/json"
	"fmt"
)

// CodecVersion names a codec format version. Marshal rejects any
// version other than CurrentVersion. The marshaled bytes carry no
// version tag, so Unmarshal does not check one and always reports
// CurrentVersion.
type CodecVersion uint16

const (
	// CurrentVersion is the current codec version
	CurrentVersion CodecVersion = 0
)

// Codec is the package-wide JSON codec instance config.Load reads
// node configuration through.
var Codec = &JSONCodec{}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

// Marshal marshals an object to bytes
func (c *JSONCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("unsupported codec version: %d", version)
	}
	return json.Marshal(v)
}

// Unmarshal unmarshals bytes to an object
func (c *JSONCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	err := json.Unmarshal(data, v)
	return CurrentVersion, err
}