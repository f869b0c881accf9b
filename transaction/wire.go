package transaction

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxChunkSize bounds length-prefixed reads so a corrupt prefix cannot force
// a huge allocation.
const maxChunkSize = 1 << 20

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func writeLengthPrefixed(w io.Writer, b []byte) error {
	if len(b) > maxChunkSize {
		return fmt.Errorf("%w: chunk of %d bytes", ErrInvalidTransaction, len(b))
	}
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > maxChunkSize {
		return nil, fmt.Errorf("%w: chunk of %d bytes", ErrInvalidTransaction, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readArray32(r io.Reader) ([32]byte, error) {
	var out [32]byte
	_, err := io.ReadFull(r, out[:])
	return out, err
}
