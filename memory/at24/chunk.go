package at24

import "fmt"

// Chunk is one page-bounded slice of a write: Len bytes of the payload,
// starting at payload index Offset, written to word address Addr.
type Chunk struct {
	Addr   uint32
	Offset int
	Len    int
}

func (c Chunk) String() string {
	return fmt.Sprintf("{addr=%#02x len=%d}", c.Addr, c.Len)
}

// Plan splits length bytes starting at start into chunks that never cross a
// page boundary. The chunks tile [start, start+length) in order. A page size
// below 1 yields no chunks; callers validate geometry first.
func Plan(start uint32, length int, pageSize int) []Chunk {
	if length <= 0 || pageSize < 1 {
		return nil
	}
	chunks := make([]Chunk, 0, length/pageSize+2)
	consumed := 0
	for consumed < length {
		addr := start + uint32(consumed)
		chunk := nextChunkLen(addr, length-consumed, pageSize)
		chunks = append(chunks, Chunk{Addr: addr, Offset: consumed, Len: chunk})
		consumed += chunk
	}
	return chunks
}

func nextChunkLen(addr uint32, remaining int, pageSize int) int {
	pageOffset := int(addr % uint32(pageSize))
	return min(pageSize-pageOffset, remaining)
}
