// Package chunk splits a linear flash range into transfer sized pieces that
// never straddle a block (page) boundary.
package chunk

type Chunk struct {
	// Index is the position of this chunk in its sequence.
	Index int
	// Address is the absolute flash address of the first byte.
	Address uint32
	// Page is Address divided by the block size, or zero if there is no
	// block size.
	Page uint32
	// Offset is Address relative to the start of Page.
	Offset uint32
	// Size is the number of bytes covered by the chunk.
	Size uint32
	// Data is the slice of the source buffer covered by the chunk. Nil for
	// chunks made by NewEmpty.
	Data []byte
}

// New splits data, which starts at flash address start, into chunks of at
// most itemSize bytes, also cutting at every multiple of blockSize. Zero
// itemSize or blockSize disables the respective limit. The returned chunks
// alias data.
func New(data []byte, start, blockSize, itemSize uint32) []Chunk {
	chunks := split(uint32(len(data)), start, blockSize, itemSize)
	for i := range chunks {
		o := chunks[i].Address - start
		chunks[i].Data = data[o : o+chunks[i].Size]
	}
	return chunks
}

// NewEmpty is like New, but for operations which carry no payload, like
// erases.
func NewEmpty(length, start, blockSize, itemSize uint32) []Chunk {
	return split(length, start, blockSize, itemSize)
}

func split(length, start, blockSize, itemSize uint32) []Chunk {
	var res []Chunk
	for done := uint32(0); done < length; {
		addr := start + done
		size := length - done
		if itemSize > 0 && size > itemSize {
			size = itemSize
		}
		c := Chunk{
			Index:   len(res),
			Address: addr,
			Offset:  addr,
		}
		if blockSize > 0 {
			if left := blockSize - addr%blockSize; size > left {
				size = left
			}
			c.Page = addr / blockSize
			c.Offset = addr % blockSize
		}
		c.Size = size
		res = append(res, c)
		done += size
	}
	return res
}
