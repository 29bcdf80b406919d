// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"io"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/errs"
	"github.com/saferwall/innoextract/setup"
)

// DiscardChunkBytes skips n bytes of a chunk reader that belong to no file
// of interest -- the scratch space between two files packed into the same
// solid-compressed chunk, or a file the caller chose not to extract.
func DiscardChunkBytes(r io.Reader, n uint64) error {
	discarded, err := io.CopyN(io.Discard, r, int64(n))
	if err != nil && err != io.EOF {
		return errs.New(errs.IoError, "stream.file", "", err)
	}
	if uint64(discarded) != n {
		return errs.Newf(errs.IoError, "stream.file", "", "chunk ended %d bytes early while skipping to a file's offset", n-uint64(discarded))
	}
	return nil
}

// FileReader limits a chunk reader to one file's declared size, reverses
// its compiler instruction-pointer transform (if any), and hashes the
// result so Verify can be called once the caller has read it to EOF.
type FileReader struct {
	src    io.Reader
	hasher *checksum.Hasher
	want   checksum.Checksum
}

// NewFileReader wraps chunkBody -- a chunk reader already advanced past any
// preceding files so it's positioned at loc's first byte -- to yield
// exactly loc.Size bytes of final, filter-reversed file content.
func NewFileReader(chunkBody io.Reader, loc setup.FileLocation) *FileReader {
	limited := io.LimitReader(chunkBody, int64(loc.Size))

	var filtered io.Reader = limited
	if loc.Filter != setup.NoFilter {
		filtered = newInstructionFilterReader(limited)
	}

	return &FileReader{
		src:    filtered,
		hasher: checksum.NewHasher(loc.Checksum.Kind),
		want:   loc.Checksum,
	}
}

func (fr *FileReader) Read(p []byte) (int, error) {
	n, err := fr.src.Read(p)
	if n > 0 {
		fr.hasher.Update(p[:n])
	}
	return n, err
}

// Verify reports whether the bytes read so far hash to the checksum the
// data entry declared. Call it only after reading the FileReader to EOF;
// a partial read makes this meaningless.
func (fr *FileReader) Verify() bool {
	return fr.hasher.Finalize().Equal(fr.want)
}

// test86MSByte mirrors the x86 BCJ filter's own name for the predicate
// that flags a byte as the sign-extension pattern (0x00 or 0xFF) a
// relative CALL/JMP's top address byte takes on.
func test86MSByte(b byte) bool { return b == 0x00 || b == 0xFF }

// reverseX86Filter undoes, in place, the relative-to-absolute transform Inno
// Setup's compiler applies to x86 CALL (0xE8) and JMP (0xE9) operands before
// compressing a payload -- absolute targets compress better than relative
// ones -- by turning each absolute operand back into the relative encoding
// the CPU executes. filePos is the absolute offset of
// data[0] within the uncompressed file; mask carries scanner state across
// calls on successive buffers of the same file.
func reverseX86Filter(data []byte, filePos uint32, mask *uint32) {
	if len(data) < 5 {
		return
	}
	size := len(data) - 4
	ip := filePos + 5
	pos := 0
	m := *mask

	for {
		p := pos
		for p < size && (data[p]&0xFE) != 0xE8 {
			p++
		}
		d := p - pos
		pos = p
		if pos >= size {
			if d > 2 {
				m = 0
			} else {
				m >>= uint(d)
			}
			*mask = m
			return
		}
		if d > 2 {
			m = 0
		} else {
			m >>= uint(d)
			if m != 0 && (m > 4 || m == 3 || test86MSByte(data[pos+int(m>>1)+1])) {
				m = (m >> 1) | 4
				pos++
				continue
			}
		}

		if test86MSByte(data[pos+4]) {
			v := uint32(data[pos+4])<<24 | uint32(data[pos+3])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+1])
			cur := ip + uint32(pos)
			pos += 5
			v -= cur

			if m != 0 {
				sh := (m & 6) << 2
				if test86MSByte(byte(v >> sh)) {
					v ^= (uint32(0x100) << sh) - 1
					v -= cur
				}
				m = 0
			}

			data[pos-4] = byte(v)
			data[pos-3] = byte(v >> 8)
			data[pos-2] = byte(v >> 16)
			data[pos-1] = byte(0 - ((v >> 24) & 1))
		} else {
			m = (m >> 1) | 4
			pos++
		}
	}
}

// instructionFilterReader applies reverseX86Filter to a stream in bounded
// chunks, holding back the trailing 4 bytes of each read (a CALL/JMP
// straddling a chunk boundary needs its operand bytes from the next read)
// until either more data or EOF resolves them.
//
// All three InstructionFilter variants the data-entry record distinguishes
// share this same transform; the historical differences between them
// live in a 7-Zip SDK header this project's source pack did not retrieve,
// so one implementation serves all of them.
type instructionFilterReader struct {
	src     io.Reader
	ip      uint32
	mask    uint32
	held    []byte // raw trailing bytes not yet run through the filter
	pending []byte // already-filtered bytes waiting to be handed out
	rdErr   error
}

func newInstructionFilterReader(r io.Reader) *instructionFilterReader {
	return &instructionFilterReader{src: r}
}

// instructionFilterHoldback is how many trailing bytes of each read are
// withheld from filtering: a relative CALL/JMP's operand can straddle a
// read boundary, so the last 4 bytes always wait for one more read (or
// EOF) before being processed.
const instructionFilterHoldback = 4

// instructionFilterReadSize is the minimum amount fetched from src per
// underlying read, regardless of the caller's buffer size, so a caller
// reading in small pieces doesn't turn this into a byte-at-a-time filter.
const instructionFilterReadSize = 32 * 1024

func (f *instructionFilterReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(f.pending) > 0 {
		n := copy(p, f.pending)
		f.pending = f.pending[n:]
		return n, nil
	}
	if f.rdErr != nil && len(f.held) == 0 {
		return 0, f.rdErr
	}

	readSize := len(p)
	if readSize < instructionFilterReadSize {
		readSize = instructionFilterReadSize
	}
	buf := make([]byte, len(f.held)+readSize)
	n := copy(buf, f.held)
	f.held = nil

	if f.rdErr == nil {
		got, err := f.src.Read(buf[n:])
		n += got
		f.rdErr = err
	}
	buf = buf[:n]

	atEOF := f.rdErr != nil
	processLen := len(buf)
	if !atEOF && len(buf) > instructionFilterHoldback {
		processLen = len(buf) - instructionFilterHoldback
	}

	process := buf[:processLen]
	reverseX86Filter(process, f.ip, &f.mask)
	f.ip += uint32(processLen)
	if processLen < len(buf) {
		f.held = append([]byte(nil), buf[processLen:]...)
	}

	copied := copy(p, process)
	if copied < len(process) {
		f.pending = append([]byte(nil), process[copied:]...)
	}
	if copied == 0 && atEOF && len(f.held) == 0 {
		return 0, f.rdErr
	}
	return copied, nil
}
