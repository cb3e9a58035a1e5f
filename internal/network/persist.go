package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

// Model file layout:
//   - 4 bytes: magic "FDNN"
//   - 1 byte: format version
//   - 8 bytes: murmur3 64-bit checksum of the payload (little-endian)
//   - remaining: snappy-compressed JSON encoding of the Model
const (
	modelMagic      = "FDNN"
	modelVersion    = byte(1)
	modelHeaderSize = len(modelMagic) + 1 + 8
)

// ErrCorruptModel is returned when a model file fails validation.
var ErrCorruptModel = errors.New("model file is corrupt")

// EncodeModel serializes m into the model file format.
func EncodeModel(m *Model) ([]byte, error) {
	payloadJSON, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	payload := snappy.Encode(nil, payloadJSON)

	buf := make([]byte, modelHeaderSize, modelHeaderSize+len(payload))
	copy(buf, modelMagic)
	buf[len(modelMagic)] = modelVersion
	binary.LittleEndian.PutUint64(buf[len(modelMagic)+1:], murmur3.Sum64(payload))
	return append(buf, payload...), nil
}

// DecodeModel parses data written by EncodeModel.
func DecodeModel(data []byte) (*Model, error) {
	if len(data) < modelHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptModel, len(data))
	}
	if string(data[:len(modelMagic)]) != modelMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptModel, data[:len(modelMagic)])
	}
	if version := data[len(modelMagic)]; version != modelVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptModel, version)
	}

	payload := data[modelHeaderSize:]
	want := binary.LittleEndian.Uint64(data[len(modelMagic)+1:])
	if got := murmur3.Sum64(payload); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptModel)
	}

	payloadJSON, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}

	var m Model
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	return &m, nil
}

// WriteModel atomically writes m to path, creating parent directories.
func WriteModel(path string, m *Model) error {
	data, err := EncodeModel(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// ReadModel reads and validates the model file at path.
func ReadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	m, err := DecodeModel(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return m, nil
}

func (m *Model) validate() error {
	if m.Network == nil || m.Normalizer == nil {
		return errors.New("missing network or normalizer")
	}
	n := m.Network
	if len(n.Layers) < 2 || len(n.Weights) != len(n.Layers)-1 {
		return fmt.Errorf("inconsistent layers %v", n.Layers)
	}
	for l, weights := range n.Weights {
		if len(weights) != (n.Layers[l]+1)*n.Layers[l+1] {
			return fmt.Errorf("layer %d has %d weights", l, len(weights))
		}
	}
	if n.InputSize() != m.Normalizer.InputSize() || n.OutputSize() != m.Normalizer.OutputSize() {
		return errors.New("network does not match normalizer")
	}
	return nil
}
