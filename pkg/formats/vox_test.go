package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/voxelworld/pkg/voxel"
)

// voxChunkBytes builds one encoded chunk with the given content and
// already-encoded children.
func voxChunkBytes(id string, content []byte, children ...[]byte) []byte {
	var childData []byte
	for _, c := range children {
		childData = append(childData, c...)
	}

	var buf bytes.Buffer
	buf.WriteString(id)
	binary.Write(&buf, binary.LittleEndian, uint32(len(content)))
	binary.Write(&buf, binary.LittleEndian, uint32(len(childData)))
	buf.Write(content)
	buf.Write(childData)
	return buf.Bytes()
}

// createTestVOX assembles a complete .vox file around a MAIN chunk.
func createTestVOX(version uint32, children ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("VOX ")
	binary.Write(&buf, binary.LittleEndian, version)
	buf.Write(voxChunkBytes("MAIN", nil, children...))
	return buf.Bytes()
}

func sizeChunk(w, h, d uint32) []byte {
	var content bytes.Buffer
	binary.Write(&content, binary.LittleEndian, [3]uint32{w, h, d})
	return voxChunkBytes("SIZE", content.Bytes())
}

func xyziChunk(voxels ...[4]uint8) []byte {
	var content bytes.Buffer
	binary.Write(&content, binary.LittleEndian, uint32(len(voxels)))
	for _, v := range voxels {
		content.Write(v[:])
	}
	return voxChunkBytes("XYZI", content.Bytes())
}

func rgbaChunk(colors [256][4]uint8) []byte {
	var content bytes.Buffer
	for _, c := range colors {
		content.Write(c[:])
	}
	return voxChunkBytes("RGBA", content.Bytes())
}

func mattChunk(id, matType uint32, weight float32, props uint32, values ...float32) []byte {
	var content bytes.Buffer
	binary.Write(&content, binary.LittleEndian, id)
	binary.Write(&content, binary.LittleEndian, matType)
	binary.Write(&content, binary.LittleEndian, math.Float32bits(weight))
	binary.Write(&content, binary.LittleEndian, props)
	for _, v := range values {
		binary.Write(&content, binary.LittleEndian, math.Float32bits(v))
	}
	return voxChunkBytes("MATT", content.Bytes())
}

func TestParseVOXModel(t *testing.T) {
	data := createTestVOX(150,
		sizeChunk(2, 2, 2),
		xyziChunk([4]uint8{0, 0, 0, 1}, [4]uint8{1, 0, 1, 2}),
	)

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if vox.Version != 150 {
		t.Errorf("expected version 150, got %d", vox.Version)
	}
	if len(vox.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(vox.Models))
	}

	m := &vox.Models[0]
	if m.SizeX != 2 || m.SizeY != 2 || m.SizeZ != 2 {
		t.Errorf("expected 2x2x2 model, got %dx%dx%d", m.SizeX, m.SizeY, m.SizeZ)
	}
	if got := m.Index(0, 0, 0); got != 1 {
		t.Errorf("expected index 1 at origin, got %d", got)
	}
	// File voxel (1,0,1): z-up becomes the model's Y axis.
	if got := m.Index(1, 1, 0); got != 2 {
		t.Errorf("expected index 2 at (1,1,0), got %d", got)
	}
	if got := m.Index(1, 0, 1); got != 0 {
		t.Errorf("expected empty at (1,0,1), got %d", got)
	}

	// Out of bounds reads are empty, not panics.
	if got := m.Index(-1, 0, 0); got != 0 {
		t.Errorf("expected 0 out of bounds, got %d", got)
	}

	mats := m.Materials()
	if len(mats) != 8 {
		t.Fatalf("expected 8 material entries, got %d", len(mats))
	}
	if mats[0] != 1 {
		t.Errorf("expected material 1 at linear index 0, got %d", mats[0])
	}
}

func TestParseVOXAxisConversion(t *testing.T) {
	// Asymmetric dimensions make the z-up conversion observable: file
	// (w=1, h=2, d=4) becomes a 1-wide, 4-tall, 2-deep model.
	data := createTestVOX(150,
		sizeChunk(1, 2, 4),
		xyziChunk([4]uint8{0, 1, 3, 5}),
	)

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	m := &vox.Models[0]
	if m.SizeX != 1 || m.SizeY != 4 || m.SizeZ != 2 {
		t.Fatalf("expected 1x4x2 model, got %dx%dx%d", m.SizeX, m.SizeY, m.SizeZ)
	}
	if got := m.Index(0, 3, 1); got != 5 {
		t.Errorf("expected index 5 at (0,3,1), got %d", got)
	}
}

func TestParseVOXMultipleModels(t *testing.T) {
	data := createTestVOX(150,
		sizeChunk(1, 1, 1),
		xyziChunk([4]uint8{0, 0, 0, 1}),
		sizeChunk(2, 1, 1),
		xyziChunk([4]uint8{1, 0, 0, 3}),
	)

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}
	if len(vox.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(vox.Models))
	}
	if got := vox.Models[1].Index(1, 0, 0); got != 3 {
		t.Errorf("second model: expected index 3, got %d", got)
	}
}

func TestParseVOXDefaultPalette(t *testing.T) {
	data := createTestVOX(150, sizeChunk(1, 1, 1), xyziChunk([4]uint8{0, 0, 0, 1}))

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	// Built-in palette entry 1 is opaque white.
	e := vox.Palette[1]
	if e.Albedo != [3]uint8{0xff, 0xff, 0xff} || e.Alpha != 0xff {
		t.Errorf("expected opaque white at index 1, got %+v", e)
	}
	if e.Roughness != 255 {
		t.Errorf("expected default roughness 255, got %d", e.Roughness)
	}
	if vox.Palette[0] != (voxel.PaletteEntry{}) {
		t.Errorf("palette index 0 must stay empty, got %+v", vox.Palette[0])
	}
}

func TestParseVOXRGBA(t *testing.T) {
	var colors [256][4]uint8
	colors[0] = [4]uint8{10, 20, 30, 255}

	data := createTestVOX(150,
		sizeChunk(1, 1, 1),
		xyziChunk([4]uint8{0, 0, 0, 1}),
		rgbaChunk(colors),
	)

	vox, err := ParseVOX(data)
	if err != nil {
		t.Fatalf("ParseVOX failed: %v", err)
	}

	// RGBA record 0 maps to palette index 1.
	e := vox.Palette[1]
	if e.Albedo != [3]uint8{10, 20, 30} || e.Alpha != 255 {
		t.Errorf("expected custom color at index 1, got %+v", e)
	}
}

func TestParseVOXMATT(t *testing.T) {
	const roughnessBit = 1 << 1

	tests := []struct {
		name          string
		matType       uint32
		weight        float32
		wantMetallic  uint8
		wantEmissive  bool
		wantRoughness uint8
	}{
		{name: "metal", matType: 1, weight: 1.0, wantMetallic: 255, wantRoughness: 127},
		{name: "diffuse", matType: 0, weight: 1.0, wantMetallic: 0, wantRoughness: 127},
		{name: "emissive", matType: 3, weight: 0.5, wantMetallic: 127, wantEmissive: true, wantRoughness: 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := createTestVOX(150,
				sizeChunk(1, 1, 1),
				xyziChunk([4]uint8{0, 0, 0, 1}),
				mattChunk(1, tt.matType, tt.weight, roughnessBit, 0.5),
			)

			vox, err := ParseVOX(data)
			if err != nil {
				t.Fatalf("ParseVOX failed: %v", err)
			}

			e := vox.Palette[1]
			if e.Metallic != tt.wantMetallic {
				t.Errorf("expected metallic %d, got %d", tt.wantMetallic, e.Metallic)
			}
			if e.Roughness != tt.wantRoughness {
				t.Errorf("expected roughness %d, got %d", tt.wantRoughness, e.Roughness)
			}
			if tt.wantEmissive && e.Emission != e.Albedo {
				t.Errorf("emissive material should glow with its albedo, got %+v", e)
			}
			if !tt.wantEmissive && e.Emission != [3]uint8{} {
				t.Errorf("non-emissive material should not glow, got %+v", e)
			}
		})
	}
}

func TestParseVOXErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrTruncatedVOXData},
		{name: "bad magic", data: createBadMagic(), wantErr: ErrInvalidVOXMagic},
		{name: "old version", data: createTestVOX(100), wantErr: ErrUnsupportedVOXVersion},
		{
			name:    "xyzi without size",
			data:    createTestVOX(150, xyziChunk([4]uint8{0, 0, 0, 1})),
			wantErr: ErrMalformedVOXChunk,
		},
		{
			name:    "truncated chunk",
			data:    createTestVOX(150, sizeChunk(1, 1, 1))[:20],
			wantErr: ErrTruncatedVOXData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseVOX(tt.data); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func createBadMagic() []byte {
	data := createTestVOX(150)
	copy(data[0:4], "GRAT")
	return data
}

func TestParseVOXRejectsOversizedModel(t *testing.T) {
	data := createTestVOX(150,
		sizeChunk(300, 1, 1),
		xyziChunk([4]uint8{0, 0, 0, 1}),
	)
	if _, err := ParseVOX(data); err == nil {
		t.Error("expected error for model over 256 cells per axis, got nil")
	}
}
