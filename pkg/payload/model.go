package payload

// Model is a serialized gradient-boosted-tree model kept as an opaque blob.
type Model struct {
	Format string
	Bytes  []byte
}
