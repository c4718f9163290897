// This package contains the [Serializer] interface and several implementations inside
// subpackages.
package serial

// Serializer converts single items to bytes and back.
//
// Implementations hold no per-call state and are safe for concurrent use.
type Serializer[Item any] interface {
	// Marshal appends the encoded item to dst and returns the extended slice.
	Marshal(dst []byte, item Item) ([]byte, error)
	// Unmarshal decodes exactly one item from data.
	//
	// The returned item never references data, so the caller may reuse it afterwards.
	Unmarshal(data []byte) (Item, error)
}
