package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncodeWAV_Empty(t *testing.T) {
	out := EncodeWAV(nil, ProviderSampleRate, ProviderChannels)

	if len(out) != 44 {
		t.Fatalf("Expected 44 bytes, got %d", len(out))
	}
	if size := binary.LittleEndian.Uint32(out[4:8]); size != 36 {
		t.Errorf("Expected RIFF size 36, got %d", size)
	}
	if size := binary.LittleEndian.Uint32(out[40:44]); size != 0 {
		t.Errorf("Expected data size 0, got %d", size)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	out := EncodeWAV(samples, ProviderSampleRate, ProviderChannels)

	if len(out) != 44+2*len(samples) {
		t.Fatalf("Expected %d bytes, got %d", 44+2*len(samples), len(out))
	}

	le := binary.LittleEndian
	checks := []struct {
		name     string
		got      uint32
		expected uint32
	}{
		{"riff size", le.Uint32(out[4:]), uint32(36 + 2*len(samples))},
		{"fmt size", le.Uint32(out[16:]), 16},
		{"format", uint32(le.Uint16(out[20:])), 1},
		{"channels", uint32(le.Uint16(out[22:])), 1},
		{"sample rate", le.Uint32(out[24:]), 24000},
		{"byte rate", le.Uint32(out[28:]), 48000},
		{"block align", uint32(le.Uint16(out[32:])), 2},
		{"bits per sample", uint32(le.Uint16(out[34:])), 16},
		{"data size", le.Uint32(out[40:]), uint32(2 * len(samples))},
	}
	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("Expected %s %d, got %d", c.name, c.expected, c.got)
		}
	}

	for _, tag := range []struct {
		offset int
		id     string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(out[tag.offset : tag.offset+4]); got != tag.id {
			t.Errorf("Expected %q at offset %d, got %q", tag.id, tag.offset, got)
		}
	}

	for i, s := range samples {
		if got := int16(le.Uint16(out[44+i*2:])); got != s {
			t.Errorf("Expected sample %d to be %d, got %d", i, s, got)
		}
	}
}

func TestEncodeWAV_StereoHeader(t *testing.T) {
	out := EncodeWAV(make([]int16, 4), 44100, 2)
	if got := binary.LittleEndian.Uint32(out[28:]); got != 176400 {
		t.Errorf("Expected byte rate 176400, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(out[32:]); got != 4 {
		t.Errorf("Expected block align 4, got %d", got)
	}
}

func TestEncodeWAV_DoesNotMutateInput(t *testing.T) {
	samples := []int16{5, -5, 7}
	EncodeWAV(samples, ProviderSampleRate, ProviderChannels)
	if samples[0] != 5 || samples[1] != -5 || samples[2] != 7 {
		t.Errorf("Expected input unchanged, got %v", samples)
	}
}

func TestRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0x00, 0xE8, 0x03, 0x18, 0xFC, 0xFF, 0x7F, 0x00, 0x80, 0x01, 0x02}

	samples, err := DecodeSamples(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("DecodeSamples failed: %v", err)
	}
	if len(samples) != len(raw)/2 {
		t.Fatalf("Expected %d samples, got %d", len(raw)/2, len(samples))
	}
	if samples[1] != 1000 || samples[2] != -1000 {
		t.Errorf("Expected samples 1000 and -1000, got %d and %d", samples[1], samples[2])
	}

	data, err := ExtractData(EncodeWAV(samples, ProviderSampleRate, ProviderChannels))
	if err != nil {
		t.Fatalf("ExtractData failed: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("Expected round trip to reproduce %v, got %v", raw, data)
	}
}

func TestDecodeSamples_PartialSample(t *testing.T) {
	_, err := DecodeSamples(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
}

func TestDecodeSamples_InvalidBase64(t *testing.T) {
	_, err := DecodeSamples("not base64!!")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if decodeErr.Unwrap() == nil {
		t.Error("Expected underlying base64 error")
	}
}

func TestDecodeSamples_Empty(t *testing.T) {
	samples, err := DecodeSamples("")
	if err != nil {
		t.Fatalf("Expected no error for empty payload, got %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Expected 0 samples, got %d", len(samples))
	}
}

func TestEncodeWAV_StandardDecoder(t *testing.T) {
	samples := make([]int16, 2400)
	for i := range samples {
		samples[i] = int16(i%200 - 100)
	}
	out := EncodeWAV(samples, ProviderSampleRate, ProviderChannels)

	d := wav.NewDecoder(bytes.NewReader(out))
	if !d.IsValidFile() {
		t.Fatal("Expected go-audio/wav to accept the container")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if d.SampleRate != 24000 || d.NumChans != 1 || d.BitDepth != 16 {
		t.Errorf("Expected 24000/1/16, got %d/%d/%d", d.SampleRate, d.NumChans, d.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("Expected %d decoded samples, got %d", len(samples), len(buf.Data))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Fatalf("Expected sample %d to be %d, got %d", i, s, buf.Data[i])
		}
	}
}

func TestExtractData_Invalid(t *testing.T) {
	if _, err := ExtractData([]byte("short")); err == nil {
		t.Error("Expected error for short input")
	}
	if _, err := ExtractData(make([]byte, 44)); err == nil {
		t.Error("Expected error for missing RIFF tag")
	}
}
