// Package audioconv turns audio files into the 16 kHz mono float PCM the
// transcribers expect, and writes PCM back out as WAV.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the result; 0 keeps everything.
	MaxSamples int
}

type decoder func(io.ReadSeeker) ([]float32, int, error)

// DecodeFile reads a wav, mp3 or ogg (vorbis or opus) file and returns it
// as 16 kHz mono samples in [-1, 1]. Files without a known extension are
// sniffed by their magic bytes.
func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if kind == "" || (kind != "wav" && kind != "mp3" && kind != "ogg" && kind != "oga" && kind != "opus") {
		kind, err = sniff(f)
		if err != nil {
			return nil, err
		}
	}

	var chain []decoder
	switch kind {
	case "wav":
		chain = []decoder{decodeWAV}
	case "mp3":
		chain = []decoder{decodeMP3}
	case "ogg", "oga":
		chain = []decoder{decodeVorbis, decodeOpus}
	case "opus":
		chain = []decoder{decodeOpus}
	}

	var errs []error
	for _, dec := range chain {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		samples, rate, err := dec(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return finish(samples, rate, opt), nil
	}

	return nil, fmt.Errorf("decode %s: %w", path, errors.Join(errs...))
}

func sniff(f *os.File) (string, error) {
	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	switch {
	case string(magic) == "RIFF":
		return "wav", nil
	case string(magic) == "OggS":
		return "ogg", nil
	case string(magic[:min(3, len(magic))]) == "ID3":
		return "mp3", nil
	default:
		return "", ErrUnsupported
	}
}

func finish(x []float32, rate int, opt Options) []float32 {
	if rate != TargetRate {
		x = resampleLinear(x, rate, TargetRate)
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, 0, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	ch, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}

	return downmix(intsToFloat(pb.Data, depth), ch), rate, nil
}

func decodeMP3(r io.ReadSeeker) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, err
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, 0, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always yields interleaved stereo.
	return downmix(int16sToFloat(ints), 2), rate, nil
}

func decodeVorbis(r io.ReadSeeker) ([]float32, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, errors.New("invalid ogg/vorbis stream")
	}
	return downmix(pcm, format.Channels), format.SampleRate, nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48 kHz.
	var (
		pcm []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return downmix(pcm, ch), 48_000, nil
}
