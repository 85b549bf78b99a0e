package filesys

import (
	"fmt"
	"io"
	"sync"
)

// Allocator tracks which sectors of the disk are in use.
type Allocator interface {
	// CountClear returns the number of free sectors.
	CountClear() int
	// FindAndSet claims the first free sector and returns its number,
	// or NoSector when the disk is full.
	FindAndSet() int
	// Test reports whether a sector is marked in use.
	Test(sector int) bool
	// Clear marks a sector free.
	Clear(sector int)
}

// Bitmap is the free sector map. It is persisted as an ordinary file,
// one bit per sector.
type Bitmap struct {
	lock  sync.Mutex
	nbits int
	bits  []bool
}

var _ Allocator = (*Bitmap)(nil)

func NewBitmap(nbits int) *Bitmap {
	return &Bitmap{
		nbits: nbits,
		bits:  make([]bool, nbits),
	}
}

// Len returns the number of bits in the map.
func (b *Bitmap) Len() int {
	return b.nbits
}

// FileSize is the number of bytes the map occupies on disk.
func (b *Bitmap) FileSize() int {
	return divRoundUp(b.nbits, 8)
}

func (b *Bitmap) Mark(which int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if which >= 0 && which < b.nbits {
		b.bits[which] = true
	}
}

func (b *Bitmap) Clear(which int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if which >= 0 && which < b.nbits {
		b.bits[which] = false
	}
}

func (b *Bitmap) Test(which int) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if which < 0 || which >= b.nbits {
		return false
	}
	return b.bits[which]
}

func (b *Bitmap) FindAndSet() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	for i := 0; i < b.nbits; i++ {
		if !b.bits[i] {
			b.bits[i] = true
			return i
		}
	}
	return NoSector
}

func (b *Bitmap) CountClear() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	count := 0
	for _, used := range b.bits {
		if !used {
			count++
		}
	}
	return count
}

// FetchFrom loads the map from the start of file.
func (b *Bitmap) FetchFrom(file io.ReaderAt) error {
	buf := make([]byte, b.FileSize())
	n, err := file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("free map: read %d of %d bytes: %w", n, len(buf), ErrReadFailed)
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	for i := range b.bits {
		b.bits[i] = buf[i/8]&(1<<(i%8)) != 0
	}
	return nil
}

// WriteBack stores the map at the start of file.
func (b *Bitmap) WriteBack(file io.WriterAt) error {
	buf := make([]byte, b.FileSize())
	b.lock.Lock()
	for i, used := range b.bits {
		if used {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	b.lock.Unlock()
	n, err := file.WriteAt(buf, 0)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("free map: wrote %d of %d bytes: %w", n, len(buf), ErrWriteFailed)
	}
	return nil
}

// Print writes the numbers of the sectors in use.
func (b *Bitmap) Print(w io.Writer) {
	b.lock.Lock()
	defer b.lock.Unlock()
	fmt.Fprintf(w, "Bitmap set:\n")
	for i, used := range b.bits {
		if used {
			fmt.Fprintf(w, "%d, ", i)
		}
	}
	fmt.Fprintln(w)
}
