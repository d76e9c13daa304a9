package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// EncodeWAV wraps interleaved 16-bit samples in a RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", sampleRate, channels)
	}

	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize
	blockAlign := channels * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(channels))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, int16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes(), nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func decodeWAV(data []byte) (*PCM, error) {
	if !isWAV(data) {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var (
		pcm       PCM
		haveFmt   bool
		haveData  bool
		bitsDepth uint16
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("chunk %q truncated", id)
		}
		chunk := data[body : body+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(chunk[0:2]); format != 1 {
				return nil, fmt.Errorf("unsupported wav encoding %d", format)
			}
			pcm.Channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bitsDepth = binary.LittleEndian.Uint16(chunk[14:16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			pcm.Samples = make([]int16, size/2)
			for i := range pcm.Samples {
				pcm.Samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2 : i*2+2]))
			}
			haveData = true
		}

		offset = body + size + size%2
	}

	switch {
	case !haveFmt:
		return nil, errors.New("missing fmt chunk")
	case !haveData:
		return nil, errors.New("missing data chunk")
	case bitsDepth != 16:
		return nil, fmt.Errorf("unsupported bit depth %d", bitsDepth)
	case pcm.Channels < 1 || pcm.SampleRate < 1:
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", pcm.SampleRate, pcm.Channels)
	}

	return &pcm, nil
}
