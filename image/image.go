// Package image defines the interface the disassembler consumes from
// the loader layer. Loading PE (or other container) files and
// exposing byte sequences and section metadata belongs to that layer;
// a minimal in-memory Image is provided here for tests and the thin
// cmd/x86dis driver.
package image

import "github.com/Urethramancer/x86dis/disasmerr"

// Section describes one named, mapped region of the image.
type Section struct {
	Name       string
	Address    uint64
	Size       uint64
	Executable bool
}

// ByteSequence is a scoped, releasable view onto image bytes. Release
// must be called exactly once, on every exit path, including error
// paths.
type ByteSequence interface {
	Bytes() []byte
	Release()
}

// Image is the interface consumed from the loader/container layer.
type Image interface {
	// GetByteSequence acquires a byte view starting at addr. lock
	// requests read-atomicity against concurrent patch operations
	// from scripts; callers MUST call Release on the returned
	// sequence.
	GetByteSequence(addr uint64, lock bool) (ByteSequence, error)
	CreateContext() int // processor mode in bits: 16, 32, or 64
	CodeEntryPointMem() uint64
	IsValidAddress(a uint64) bool
	IsCodeAddress(a uint64) bool
	ToMemAddress(fileOffset int) uint64
	GetImports() map[uint64]string
	GetSections() []Section
}

// Memory is a minimal flat in-memory Image: one section, no file/mem
// offset translation beyond identity. It stands in for a loaded PE
// image in tests and the CLI driver.
type Memory struct {
	Data       []byte
	Base       uint64
	EntryPoint uint64
	Mode       int
	Imports    map[uint64]string
	Sections   []Section
}

// NewMemory builds a Memory image with one executable section covering
// the whole of data, mapped starting at base.
func NewMemory(data []byte, base, entry uint64, mode int) *Memory {
	return &Memory{
		Data:       data,
		Base:       base,
		EntryPoint: entry,
		Mode:       mode,
		Imports:    map[uint64]string{},
		Sections: []Section{
			{Name: ".text", Address: base, Size: uint64(len(data)), Executable: true},
		},
	}
}

type memSequence struct {
	data []byte
}

func (s *memSequence) Bytes() []byte { return s.data }
func (s *memSequence) Release()      {}

func (m *Memory) GetByteSequence(addr uint64, _ bool) (ByteSequence, error) {
	if addr < m.Base || addr >= m.Base+uint64(len(m.Data)) {
		return nil, disasmerr.InvalidAddress
	}
	off := addr - m.Base
	return &memSequence{data: m.Data[off:]}, nil
}

func (m *Memory) CreateContext() int { return m.Mode }

func (m *Memory) CodeEntryPointMem() uint64 { return m.EntryPoint }

func (m *Memory) IsValidAddress(a uint64) bool {
	return a >= m.Base && a < m.Base+uint64(len(m.Data))
}

func (m *Memory) IsCodeAddress(a uint64) bool {
	for _, s := range m.Sections {
		if s.Executable && a >= s.Address && a < s.Address+s.Size {
			return true
		}
	}
	return false
}

func (m *Memory) ToMemAddress(fileOffset int) uint64 {
	return m.Base + uint64(fileOffset)
}

func (m *Memory) GetImports() map[uint64]string { return m.Imports }

func (m *Memory) GetSections() []Section { return m.Sections }
