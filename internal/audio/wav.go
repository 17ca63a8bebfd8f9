package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

const (
	// WAVHeaderSize is the size of the canonical RIFF/PCM header.
	WAVHeaderSize = 44

	// WAVMIMEType is the content type of an encoded Blob.
	WAVMIMEType = "audio/wav"

	formatPCM     = 1
	bitsPerSample = 16
)

// WAVHeader is the canonical 44-byte RIFF/PCM header, little-endian on disk.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Blob is a complete WAV file.
type Blob struct {
	Data     []byte
	MIMEType string
}

// Len returns the file size in bytes.
func (b Blob) Len() int { return len(b.Data) }

// WriteTo writes the file to w.
func (b Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}

// EncodeWAV serializes buf as a 16-bit PCM WAV, interleaving all channels.
// A buffer with zero frames yields a header-only file.
func EncodeWAV(buf *Buffer) (Blob, error) {
	if err := buf.Validate(); err != nil {
		return Blob{}, err
	}

	channels := buf.ChannelCount()
	blockAlign := int64(channels) * bitsPerSample / 8
	byteRate := int64(buf.SampleRate()) * blockAlign
	dataSize := int64(buf.FrameCount()) * blockAlign

	if channels > math.MaxUint16 || byteRate > math.MaxUint32 || dataSize > math.MaxUint32-(WAVHeaderSize-8) {
		return Blob{}, invalidBuffer(fmt.Sprintf("buffer too large for WAV: %d channels, %d Hz, %d frames",
			channels, buf.SampleRate(), buf.FrameCount()))
	}

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(WAVHeaderSize - 8 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(buf.SampleRate()),
		ByteRate:      uint32(byteRate),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}

	out := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+int(dataSize)))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return Blob{}, fmt.Errorf("failed to write WAV header: %w", err)
	}

	data := make([]byte, dataSize)
	writePCM16(data, buf)
	out.Write(data)

	return Blob{Data: out.Bytes(), MIMEType: WAVMIMEType}, nil
}

// ReadWAVHeader parses and validates the header of a 16-bit PCM WAV.
func ReadWAVHeader(data []byte) (WAVHeader, error) {
	var header WAVHeader
	if len(data) < WAVHeaderSize {
		return header, invalidWAV(fmt.Sprintf("need at least %d bytes, got %d", WAVHeaderSize, len(data)))
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return header, ttypes.NewTTSError(ttypes.ErrorCodeInvalidWAV, "failed to read WAV header", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return header, invalidWAV("missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return header, invalidWAV("missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return header, invalidWAV("missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return header, invalidWAV("missing data chunk")
	case header.AudioFormat != formatPCM:
		return header, invalidWAV(fmt.Sprintf("unsupported audio format %d (only PCM is supported)", header.AudioFormat))
	case header.BitsPerSample != bitsPerSample:
		return header, invalidWAV(fmt.Sprintf("unsupported bit depth %d (only 16-bit is supported)", header.BitsPerSample))
	case header.NumChannels == 0:
		return header, invalidWAV("zero channels")
	case header.SampleRate == 0:
		return header, invalidWAV("zero sample rate")
	}

	if uint64(header.Subchunk2Size) > uint64(len(data)-WAVHeaderSize) {
		return header, invalidWAV(fmt.Sprintf("data chunk claims %d bytes, file has %d", header.Subchunk2Size, len(data)-WAVHeaderSize))
	}
	return header, nil
}

// DecodeWAV reads a WAV produced by EncodeWAV (or any canonical 16-bit PCM
// WAV) back into a Buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	header, err := ReadWAVHeader(data)
	if err != nil {
		return nil, err
	}
	pcm := data[WAVHeaderSize : WAVHeaderSize+int(header.Subchunk2Size)]
	return InterpretPCM(pcm, int(header.SampleRate), int(header.NumChannels))
}

func invalidWAV(msg string) error {
	return ttypes.NewTTSError(ttypes.ErrorCodeInvalidWAV, msg, nil)
}
