package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"voicekit/core"

	"github.com/zaf/g711"
)

// PCM constants
const (
	pcmMax = 32767  // Max 16-bit PCM value
	pcmMin = -32768 // Min 16-bit PCM value
)

// ValidatePCMData validates a PCM byte array for basic integrity.
func ValidatePCMData(pcm []byte, numChannels int) error {
	if len(pcm) == 0 {
		return errors.New("PCM data is empty")
	}
	if len(pcm)%2 != 0 {
		return errors.New("PCM data must have even length (16-bit samples)")
	}
	if numChannels <= 0 {
		return errors.New("invalid number of channels")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return errors.New("PCM data length doesn't match channel count")
	}
	return nil
}

// GetPCMSampleCount returns the number of 16-bit samples in PCM data.
func GetPCMSampleCount(pcm []byte) int {
	if len(pcm)%2 != 0 {
		return 0
	}
	return len(pcm) / 2
}

// PCMBytesToULaw converts 16-bit PCM bytes to µ-law using ITU-T G.711.
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts µ-law bytes to 16-bit PCM bytes.
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// PCMBytesToALaw converts 16-bit PCM bytes to A-law using ITU-T G.711.
func PCMBytesToALaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeAlaw(pcm), nil
}

// ALawBytesToPCM converts A-law bytes to 16-bit PCM bytes.
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// PCMBytesToWavBytes wraps PCM []byte into WAV []byte (16-bit little endian).
// Supports mono or stereo.
func PCMBytesToWavBytes(pcm []byte, numChannels, sampleRate int) ([]byte, error) {
	if numChannels != 1 && numChannels != 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if err := ValidatePCMData(pcm, numChannels); err != nil {
		return nil, err
	}

	const (
		bitsPerSample  = 16
		audioFormatPCM = 1
		subchunk1Size  = 16
	)

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)
	fileSize := 36 + dataSize // 36 = WAV header size

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// MonoToStereo converts mono PCM to stereo by duplicating each sample.
func MonoToStereo(monoPCM []byte) []byte {
	samples := len(monoPCM) / 2
	result := make([]byte, samples*4)
	for i := 0; i < samples; i++ {
		result[i*4] = monoPCM[i*2]
		result[i*4+1] = monoPCM[i*2+1]
		result[i*4+2] = monoPCM[i*2]
		result[i*4+3] = monoPCM[i*2+1]
	}
	return result
}

// StereoToMono converts stereo PCM to mono by averaging channels.
func StereoToMono(stereoPCM []byte) []byte {
	samples := len(stereoPCM) / 4
	result := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		left := int16(binary.LittleEndian.Uint16(stereoPCM[i*4 : i*4+2]))
		right := int16(binary.LittleEndian.Uint16(stereoPCM[i*4+2 : i*4+4]))
		mono := (int(left) + int(right)) / 2
		binary.LittleEndian.PutUint16(result[i*2:], uint16(int16(mono)))
	}
	return result
}

// MixPCM sums two mono PCM streams sample-by-sample with clamping. The
// shorter stream is treated as padded with silence.
func MixPCM(a, b []byte) []byte {
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	result := make([]byte, len(longer))
	copy(result, longer)
	for i := 0; i+1 < len(shorter); i += 2 {
		sa := int(int16(binary.LittleEndian.Uint16(longer[i:])))
		sb := int(int16(binary.LittleEndian.Uint16(shorter[i:])))
		sum := sa + sb
		if sum > pcmMax {
			sum = pcmMax
		} else if sum < pcmMin {
			sum = pcmMin
		}
		binary.LittleEndian.PutUint16(result[i:], uint16(int16(sum)))
	}
	return result
}

// InterleaveStereo builds an interleaved stereo stream from two mono
// streams (left, right). The shorter stream is padded with silence.
func InterleaveStereo(left, right []byte) []byte {
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	samples := n / 2
	result := make([]byte, samples*4)
	for i := 0; i < samples; i++ {
		if i*2+1 < len(left) {
			result[i*4] = left[i*2]
			result[i*4+1] = left[i*2+1]
		}
		if i*2+1 < len(right) {
			result[i*4+2] = right[i*2]
			result[i*4+3] = right[i*2+1]
		}
	}
	return result
}

// ConvertAudioChunk converts audio data between encodings and channel
// counts. Sample rate conversion is not supported; chunks keep the rate
// they arrived with.
func ConvertAudioChunk(
	input core.AudioChunk,
	targetFormat core.AudioEncodingFormat,
	targetChannels int,
) (core.AudioChunk, error) {
	if input.Format == targetFormat && input.Channels == targetChannels {
		return input, nil
	}

	// Everything goes through PCM as the intermediate format.
	if input.Format != core.PCM {
		pcmBytes, err := convertToPCM(input)
		if err != nil {
			return core.AudioChunk{}, err
		}
		input.Data = &pcmBytes
		input.Format = core.PCM
	}

	if input.Channels != targetChannels {
		pcmBytes, err := convertChannels(*input.Data, input.Channels, targetChannels)
		if err != nil {
			return core.AudioChunk{}, err
		}
		input.Data = &pcmBytes
		input.Channels = targetChannels
	}

	if targetFormat != core.PCM {
		convertedBytes, err := convertFromPCM(*input.Data, targetFormat)
		if err != nil {
			return core.AudioChunk{}, err
		}
		input.Data = &convertedBytes
		input.Format = targetFormat
	}

	return input, nil
}

func convertToPCM(input core.AudioChunk) ([]byte, error) {
	switch input.Format {
	case core.ULAW:
		return ULawBytesToPCM(*input.Data), nil
	case core.ALAW:
		return ALawBytesToPCM(*input.Data), nil
	default:
		return nil, errors.New("unsupported format for PCM conversion")
	}
}

func convertFromPCM(pcm []byte, targetFormat core.AudioEncodingFormat) ([]byte, error) {
	switch targetFormat {
	case core.ULAW:
		return PCMBytesToULaw(pcm)
	case core.ALAW:
		return PCMBytesToALaw(pcm)
	default:
		return nil, errors.New("unsupported target format")
	}
}

func convertChannels(pcm []byte, fromChannels, toChannels int) ([]byte, error) {
	if fromChannels == toChannels {
		return pcm, nil
	}
	if fromChannels == 1 && toChannels == 2 {
		return MonoToStereo(pcm), nil
	}
	if fromChannels == 2 && toChannels == 1 {
		return StereoToMono(pcm), nil
	}
	return nil, fmt.Errorf("unsupported channel conversion: %d to %d", fromChannels, toChannels)
}
