package vm

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// machineState is the JSON snapshot of the machine registers.
type machineState struct {
	PC          uint16 `json:"pc"`
	Halted      bool   `json:"halted"`
	Cycles      uint64 `json:"cycles"`
	DataDepth   int    `json:"data_depth"`
	ReturnDepth int    `json:"return_depth"`
	KeyBuffer   []byte `json:"key_buffer"`
}

// HibernateToBytes serialises the machine into an in-memory ZIP archive holding
// machine_state.json, memory.bin and the two stacks as big-endian cells.
func (m *Machine) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		PC:          m.PC,
		Halted:      m.Halted,
		Cycles:      m.Cycles,
		DataDepth:   m.Data.Depth,
		ReturnDepth: m.Return.Depth,
		KeyBuffer:   m.KeyBuffer,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal machine_state: %w", err)
	}
	if err := writeZipEntry(zw, "machine_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", m.Memory[:]); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "data_stack.bin", cellsToBE(m.Data.Cells[:m.Data.Depth])); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "return_stack.bin", cellsToBE(m.Return.Cells[:m.Return.Depth])); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by HibernateToBytes.
func (m *Machine) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "machine_state.json")
	if err != nil {
		return err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal machine_state: %w", err)
	}
	if state.DataDepth < 0 || state.DataDepth > StackDepth || state.ReturnDepth < 0 || state.ReturnDepth > StackDepth {
		return fmt.Errorf("snapshot stack depth out of range")
	}

	memData, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return err
	}
	dataCells, err := readZipEntry(fileMap, "data_stack.bin")
	if err != nil {
		return err
	}
	returnCells, err := readZipEntry(fileMap, "return_stack.bin")
	if err != nil {
		return err
	}

	m.Memory = [MemorySize]byte{}
	copy(m.Memory[:], memData)
	m.PC = state.PC
	m.Halted = state.Halted
	m.Cycles = state.Cycles
	m.KeyBuffer = state.KeyBuffer
	m.Data = Stack{Depth: state.DataDepth}
	beToCells(dataCells, m.Data.Cells[:state.DataDepth])
	m.Return = Stack{Depth: state.ReturnDepth}
	beToCells(returnCells, m.Return.Cells[:state.ReturnDepth])
	return nil
}

// HibernateToFile writes the snapshot archive to path.
func (m *Machine) HibernateToFile(path string) error {
	data, err := m.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a snapshot archive from path.
func (m *Machine) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func cellsToBE(src []uint16) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.BigEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func beToCells(src []byte, dst []uint16) {
	for i := range dst {
		if i*2+1 < len(src) {
			dst[i] = binary.BigEndian.Uint16(src[i*2:])
		}
	}
}
