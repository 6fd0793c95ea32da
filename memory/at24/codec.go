package at24

import "fmt"

// PutAddress writes the word address for addr into dst and returns the number
// of bytes used. One-byte addresses keep the low 8 bits; two-byte addresses
// are big-endian. Bits above the width are dropped the same way the device
// wraps them.
func PutAddress(dst []byte, addr uint32, width int) (int, error) {
	switch width {
	case 1:
		if len(dst) < 1 {
			return 0, fmt.Errorf("%w: address buffer too small", ErrInvalidConfiguration)
		}
		dst[0] = byte(addr)
		return 1, nil
	case 2:
		if len(dst) < 2 {
			return 0, fmt.Errorf("%w: address buffer too small", ErrInvalidConfiguration)
		}
		dst[0] = byte(addr >> 8)
		dst[1] = byte(addr)
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: address width must be 1 or 2 bytes, got %d", ErrInvalidConfiguration, width)
	}
}

// EncodeAddress returns the word address bytes for addr.
func EncodeAddress(addr uint32, width int) ([]byte, error) {
	var buf [MaxAddressWidth]byte
	n, err := PutAddress(buf[:], addr, width)
	if err != nil {
		return nil, err
	}
	return buf[:n:n], nil
}
