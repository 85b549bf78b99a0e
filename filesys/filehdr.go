package filesys

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FileHeader locates a file's data on disk. One header segment fits in
// one sector and maps up to MaxFileSize bytes through its direct sector
// table. Larger files chain further segments: each header owns the next
// one in memory and records the sector it is stored in on disk.
//
// A header is initialised either by Allocate for a new file or by
// FetchFrom for a file already on disk.
type FileHeader struct {
	numBytes    int
	numSectors  int
	dataSectors [NumDirect]int
	nextSector  int
	next        *FileHeader
}

func NewFileHeader() *FileHeader {
	h := &FileHeader{}
	h.reset()
	return h
}

func (h *FileHeader) reset() {
	h.numBytes = 0
	h.numSectors = 0
	for i := range h.dataSectors {
		h.dataSectors[i] = NoSector
	}
	h.nextSector = NoSector
	h.next = nil
}

// Allocate claims data sectors for a new file of fileSize bytes, plus one
// sector for every continuation header the file needs. On failure every
// sector claimed by this call is returned to freeMap and the header is
// left empty.
func (h *FileHeader) Allocate(freeMap Allocator, fileSize int) error {
	if fileSize < 0 {
		return fmt.Errorf("file size %d: %w", fileSize, ErrBoundsExceeded)
	}
	if fileSize > MaxChainLength*MaxFileSize {
		return fmt.Errorf("file size %d needs more than %d header segments: %w",
			fileSize, MaxChainLength, ErrBoundsExceeded)
	}

	var claimed []int
	if err := h.allocate(freeMap, fileSize, &claimed); err != nil {
		for _, sector := range claimed {
			freeMap.Clear(sector)
		}
		h.reset()
		return err
	}
	return nil
}

func (h *FileHeader) allocate(freeMap Allocator, fileSize int, claimed *[]int) error {
	h.reset()

	remain := 0
	if fileSize > MaxFileSize {
		h.numBytes = MaxFileSize
		remain = fileSize - MaxFileSize
	} else {
		h.numBytes = fileSize
	}
	h.numSectors = divRoundUp(h.numBytes, SectorSize)

	if free := freeMap.CountClear(); free < h.numSectors {
		return fmt.Errorf("%d sectors wanted, %d free: %w", h.numSectors, free, ErrDiskFull)
	}
	for i := 0; i < h.numSectors; i++ {
		sector := freeMap.FindAndSet()
		if sector == NoSector {
			return fmt.Errorf("free map exhausted after capacity check: %w", ErrDiskFull)
		}
		*claimed = append(*claimed, sector)
		h.dataSectors[i] = sector
	}

	if remain == 0 {
		return nil
	}

	sector := freeMap.FindAndSet()
	if sector == NoSector {
		return fmt.Errorf("no sector for continuation header: %w", ErrDiskFull)
	}
	*claimed = append(*claimed, sector)
	h.nextSector = sector
	h.next = NewFileHeader()
	return h.next.allocate(freeMap, remain, claimed)
}

// Deallocate returns the data sectors of the whole chain, and the sectors
// holding the continuation headers, to freeMap. The sector holding this
// header belongs to the caller. A sector found already free means the
// header and the free map disagree; the operation stops with
// ErrCorruptedState.
func (h *FileHeader) Deallocate(freeMap Allocator) error {
	depth := 0
	for seg := h; seg != nil; seg = seg.next {
		if depth++; depth > MaxChainLength {
			return fmt.Errorf("header chain longer than %d: %w", MaxChainLength, ErrCorruptedState)
		}
		for i := 0; i < seg.numSectors; i++ {
			sector := seg.dataSectors[i]
			if !freeMap.Test(sector) {
				return fmt.Errorf("data sector %d already free: %w", sector, ErrCorruptedState)
			}
			freeMap.Clear(sector)
		}
		if seg.next != nil {
			if !freeMap.Test(seg.nextSector) {
				return fmt.Errorf("header sector %d already free: %w", seg.nextSector, ErrCorruptedState)
			}
			freeMap.Clear(seg.nextSector)
		}
	}
	return nil
}

// FetchFrom reads the header stored in sector and every continuation
// header chained from it.
func (h *FileHeader) FetchFrom(dev SectorDevice, sector int) error {
	return h.fetch(dev, sector, 1)
}

func (h *FileHeader) fetch(dev SectorDevice, sector, depth int) error {
	if depth > MaxChainLength {
		return fmt.Errorf("header chain longer than %d: %w", MaxChainLength, ErrCorruptedState)
	}
	buf := make([]byte, SectorSize)
	if err := dev.ReadSector(sector, buf); err != nil {
		return err
	}
	if err := h.decode(buf, dev.NumSectors()); err != nil {
		return fmt.Errorf("header at sector %d: %w", sector, err)
	}
	if h.nextSector == NoSector {
		return nil
	}
	h.next = NewFileHeader()
	return h.next.fetch(dev, h.nextSector, depth+1)
}

// WriteBack stores this header in sector and each continuation header in
// the sector recorded for it.
func (h *FileHeader) WriteBack(dev SectorDevice, sector int) error {
	depth := 0
	for seg := h; seg != nil; seg = seg.next {
		if depth++; depth > MaxChainLength {
			return fmt.Errorf("header chain longer than %d: %w", MaxChainLength, ErrCorruptedState)
		}
		if err := dev.WriteSector(sector, seg.encode()); err != nil {
			return err
		}
		sector = seg.nextSector
	}
	return nil
}

// ByteToSector translates an offset within the file into the sector
// holding that byte.
func (h *FileHeader) ByteToSector(offset int) (int, error) {
	if offset < 0 {
		return NoSector, fmt.Errorf("offset %d: %w", offset, ErrBoundsExceeded)
	}
	maxIndex := divRoundUp(MaxFileSize, SectorSize)
	seg, rel := h, offset
	for {
		index := rel / SectorSize
		if index < maxIndex {
			if rel >= seg.numBytes {
				return NoSector, fmt.Errorf("offset %d beyond file length %d: %w",
					offset, h.FileLength(), ErrBoundsExceeded)
			}
			return seg.dataSectors[index], nil
		}
		if seg.next == nil {
			return NoSector, fmt.Errorf("offset %d beyond file length %d: %w",
				offset, h.FileLength(), ErrBoundsExceeded)
		}
		seg, rel = seg.next, rel-MaxFileSize
	}
}

// FileLength returns the number of bytes in the file.
func (h *FileHeader) FileLength() int {
	length := 0
	for seg := h; seg != nil; seg = seg.next {
		length += seg.numBytes
	}
	return length
}

// Segments returns the number of headers in the chain.
func (h *FileHeader) Segments() int {
	count := 0
	for seg := h; seg != nil; seg = seg.next {
		count++
	}
	return count
}

// DataSectors returns every data sector of the file in offset order.
func (h *FileHeader) DataSectors() []int {
	var sectors []int
	for seg := h; seg != nil; seg = seg.next {
		sectors = append(sectors, seg.dataSectors[:seg.numSectors]...)
	}
	return sectors
}

// HeaderSectors returns the sectors holding the continuation headers.
func (h *FileHeader) HeaderSectors() []int {
	var sectors []int
	for seg := h; seg.next != nil; seg = seg.next {
		sectors = append(sectors, seg.nextSector)
	}
	return sectors
}

func (h *FileHeader) SegmentBytes() int { return h.numBytes }
func (h *FileHeader) NextSector() int   { return h.nextSector }
func (h *FileHeader) Next() *FileHeader { return h.next }

// Print dumps the sector list and contents of each segment.
func (h *FileHeader) Print(w io.Writer, dev SectorDevice) error {
	data := make([]byte, SectorSize)
	for seg := h; seg != nil; seg = seg.next {
		fmt.Fprintf(w, "FileHeader contents.  File size: %d.  File blocks:\n", seg.numBytes)
		for i := 0; i < seg.numSectors; i++ {
			fmt.Fprintf(w, "%d ", seg.dataSectors[i])
		}
		fmt.Fprintf(w, "\nFile contents:\n")
		k := 0
		for i := 0; i < seg.numSectors; i++ {
			if err := dev.ReadSector(seg.dataSectors[i], data); err != nil {
				return err
			}
			for j := 0; j < SectorSize && k < seg.numBytes; j, k = j+1, k+1 {
				if data[j] >= ' ' && data[j] <= '~' {
					fmt.Fprintf(w, "%c", data[j])
				} else {
					fmt.Fprintf(w, "\\%x", data[j])
				}
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func (h *FileHeader) encode() []byte {
	buf := make([]byte, SectorSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(int32(h.numBytes)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(h.numSectors)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(int32(h.nextSector)))
	for i, sector := range h.dataSectors {
		binary.LittleEndian.PutUint32(buf[headerFields*4+i*4:], uint32(int32(sector)))
	}
	return buf
}

func (h *FileHeader) decode(buf []byte, numSectors int) error {
	h.reset()
	h.numBytes = int(int32(binary.LittleEndian.Uint32(buf[0:])))
	h.numSectors = int(int32(binary.LittleEndian.Uint32(buf[4:])))
	h.nextSector = int(int32(binary.LittleEndian.Uint32(buf[8:])))
	for i := range h.dataSectors {
		h.dataSectors[i] = int(int32(binary.LittleEndian.Uint32(buf[headerFields*4+i*4:])))
	}

	if h.numBytes < 0 || h.numBytes > MaxFileSize {
		return fmt.Errorf("segment length %d: %w", h.numBytes, ErrCorruptedState)
	}
	if h.numSectors != divRoundUp(h.numBytes, SectorSize) {
		return fmt.Errorf("%d sectors for %d bytes: %w", h.numSectors, h.numBytes, ErrCorruptedState)
	}
	for i := 0; i < h.numSectors; i++ {
		if h.dataSectors[i] < 0 || h.dataSectors[i] >= numSectors {
			return fmt.Errorf("data sector %d: %w", h.dataSectors[i], ErrCorruptedState)
		}
	}
	if h.nextSector != NoSector && (h.nextSector < 0 || h.nextSector >= numSectors) {
		return fmt.Errorf("continuation sector %d: %w", h.nextSector, ErrCorruptedState)
	}
	return nil
}
