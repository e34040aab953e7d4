package transport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Native messaging frames are a 4-byte little-endian length and a UTF-8 JSON
// body. Browsers refuse host messages above 1 MiB.
const MaxNativeMessage = 1 << 20

// ErrFrameTooLarge is returned for frames above MaxNativeMessage
var ErrFrameTooLarge = errors.New("native message exceeds size limit")

// WriteFrame encodes v as one native messaging frame
func WriteFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(body) > MaxNativeMessage {
		return ErrFrameTooLarge
	}

	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame decodes one frame into v. io.EOF means the peer closed cleanly.
func ReadFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated frame header: %w", err)
		}
		return err
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxNativeMessage {
		return ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("truncated frame body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return nil
}
