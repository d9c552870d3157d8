package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Speech provider output format: 16-bit signed little-endian PCM, mono, 24kHz
const (
	ProviderSampleRate = 24000
	ProviderChannels   = 1

	bitsPerSample  = 16
	wavHeaderSize  = 44
	fmtChunkSize   = 16
	formatPCM      = 1
	riffSizeOffset = 4
	dataSizeOffset = 40
)

// DecodeError reports a malformed or truncated sample payload
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode audio: %s: %v", e.Reason, e.Err)
	}
	return "decode audio: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeSamples converts a base64 payload of raw PCM into 16-bit samples.
// A payload that does not hold a whole number of samples is rejected.
func DecodeSamples(payload string) ([]int16, error) {
	pcmData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64", Err: err}
	}
	return BytesToSamples(pcmData)
}

// BytesToSamples interprets raw bytes as 16-bit signed little-endian samples
func BytesToSamples(pcmData []byte) ([]int16, error) {
	if len(pcmData)%2 != 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("partial sample: %d bytes is not a multiple of 2", len(pcmData))}
	}

	samples := make([]int16, len(pcmData)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(pcmData[i*2]) | int16(pcmData[i*2+1])<<8
	}
	return samples, nil
}

// EncodeWAV wraps samples in a minimal 44-byte-header WAVE container.
// The result is exactly 44 + 2*len(samples) bytes; samples are not modified.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := uint32(len(samples) * 2)
	blockAlign := uint16(channels * bitsPerSample / 8)
	byteRate := uint32(sampleRate) * uint32(blockAlign)

	buf := make([]byte, wavHeaderSize+int(dataSize))
	le := binary.LittleEndian

	// RIFF header
	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[riffSizeOffset:], 36+dataSize)
	copy(buf[8:12], "WAVE")

	// fmt chunk
	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:], fmtChunkSize)
	le.PutUint16(buf[20:], formatPCM)
	le.PutUint16(buf[22:], uint16(channels))
	le.PutUint32(buf[24:], uint32(sampleRate))
	le.PutUint32(buf[28:], byteRate)
	le.PutUint16(buf[32:], blockAlign)
	le.PutUint16(buf[34:], bitsPerSample)

	// data chunk
	copy(buf[36:40], "data")
	le.PutUint32(buf[dataSizeOffset:], dataSize)
	for i, s := range samples {
		le.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}

	return buf
}

// ExtractData returns the payload of the data chunk of a WAVE container
func ExtractData(wav []byte) ([]byte, error) {
	if len(wav) < 12 {
		return nil, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				return nil, fmt.Errorf("data chunk declares %d bytes, only %d present", chunkSize, len(wav)-start)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}
