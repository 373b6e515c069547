package audio

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// EngineSampleRate is the sample rate the transcription engine expects.
const EngineSampleRate = 16000

// ReadFileFloat32 decodes a WAV file into 32-bit float PCM samples resampled
// to the engine rate. Capture artifacts are mono 16kHz so the resample is
// normally a no-op.
func ReadFileFloat32(path string) ([]float32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	samples, sr, err := DecodeWAVToFloat32(b)
	if err != nil {
		return nil, err
	}
	if sr != EngineSampleRate {
		samples = ResampleLinear(samples, sr, EngineSampleRate)
	}
	return samples, nil
}

// DecodeWAVToFloat32 decodes a small WAV blob into 32-bit float PCM samples.
func DecodeWAVToFloat32(b []byte) ([]float32, int, error) {
	r := bytes.NewReader(b)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		if err == io.EOF {
			err = nil
		} else {
			return nil, 0, err
		}
	}
	if buf == nil {
		return nil, 0, errors.New("empty wav buffer")
	}
	// buf is *audio.IntBuffer; normalize to float32 [-1,1]
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	maxInt := 1 << (bitDepth - 1)
	if maxInt <= 0 {
		maxInt = 32768
	}
	max := float32(maxInt)
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / max
	}
	sr := int(dec.SampleRate)
	if sr == 0 && buf.Format != nil {
		sr = buf.Format.SampleRate
	}
	if sr == 0 {
		sr = EngineSampleRate
	}
	return out, sr, nil
}

// ResampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		if inRate == outRate {
			return append([]float32(nil), samples...)
		}
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		s0 := samples[i0]
		s1 := samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}
