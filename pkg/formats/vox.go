// Package formats provides parsers for voxel model file formats.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/voxelworld/pkg/voxel"
)

// VOX format errors.
var (
	ErrInvalidVOXMagic       = errors.New("invalid VOX magic: expected 'VOX '")
	ErrUnsupportedVOXVersion = errors.New("unsupported VOX version")
	ErrTruncatedVOXData      = errors.New("truncated VOX data")
	ErrMalformedVOXChunk     = errors.New("malformed VOX chunk")
)

// VOXModel is a single dense model from a .vox file, converted to y-up.
// Indices hold one palette index per cell in x-fastest order; index 0 is
// an empty cell.
type VOXModel struct {
	SizeX   uint32
	SizeY   uint32
	SizeZ   uint32
	Indices []uint8
}

// Index returns the palette index at the given cell, or 0 if the
// coordinates are out of bounds.
func (m *VOXModel) Index(x, y, z int) uint8 {
	if x < 0 || y < 0 || z < 0 || x >= int(m.SizeX) || y >= int(m.SizeY) || z >= int(m.SizeZ) {
		return 0
	}
	return m.Indices[x+y*int(m.SizeX)+z*int(m.SizeX)*int(m.SizeY)]
}

// Materials returns the model as a dense material grid suitable for
// voxel.FromGrid. Palette indices map directly to material ids.
func (m *VOXModel) Materials() []voxel.Material {
	out := make([]voxel.Material, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = voxel.Material(idx)
	}
	return out
}

// VOX represents a parsed MagicaVoxel file.
type VOX struct {
	Version uint32
	Models  []VOXModel
	Palette voxel.Palette
}

// voxChunk is one node of the RIFF-like chunk tree inside a .vox file.
type voxChunk struct {
	id       [4]byte
	content  *bytes.Reader
	children []voxChunk
}

func (c *voxChunk) is(id string) bool {
	return string(c.id[:]) == id
}

// loadVOXChunk reads one chunk and, recursively, its children. Returns
// the chunk and its total encoded size including the 12-byte header.
func loadVOXChunk(r *bytes.Reader) (voxChunk, int, error) {
	var c voxChunk
	if _, err := io.ReadFull(r, c.id[:]); err != nil {
		return voxChunk{}, 0, ErrTruncatedVOXData
	}

	var contentSize, childrenSize uint32
	if err := binary.Read(r, binary.LittleEndian, &contentSize); err != nil {
		return voxChunk{}, 0, ErrTruncatedVOXData
	}
	if err := binary.Read(r, binary.LittleEndian, &childrenSize); err != nil {
		return voxChunk{}, 0, ErrTruncatedVOXData
	}

	content := make([]byte, contentSize)
	if _, err := io.ReadFull(r, content); err != nil {
		return voxChunk{}, 0, ErrTruncatedVOXData
	}
	c.content = bytes.NewReader(content)

	loaded := 0
	for loaded < int(childrenSize) {
		child, size, err := loadVOXChunk(r)
		if err != nil {
			return voxChunk{}, 0, err
		}
		c.children = append(c.children, child)
		loaded += size
	}
	if loaded != int(childrenSize) {
		return voxChunk{}, 0, ErrMalformedVOXChunk
	}

	return c, 12 + int(contentSize) + int(childrenSize), nil
}

// ParseVOX parses a MagicaVoxel .vox file from raw bytes.
//
// MagicaVoxel is z-up; models are converted to this package's y-up
// convention, so the file's depth axis becomes the model's Y axis.
func ParseVOX(data []byte) (*VOX, error) {
	if len(data) < 8 {
		return nil, ErrTruncatedVOXData
	}
	if string(data[0:4]) != "VOX " {
		return nil, ErrInvalidVOXMagic
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version < 150 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVOXVersion, version)
	}

	r := bytes.NewReader(data[8:])
	main, _, err := loadVOXChunk(r)
	if err != nil {
		return nil, err
	}
	if !main.is("MAIN") {
		return nil, fmt.Errorf("%w: expected MAIN chunk", ErrMalformedVOXChunk)
	}

	out := &VOX{
		Version: version,
		Palette: defaultVOXPalette(),
	}

	// SIZE and XYZI chunks come in pairs, one per model.
	var sizes [][3]uint32

	for i := range main.children {
		chunk := &main.children[i]
		switch {
		case chunk.is("SIZE"):
			var dims [3]uint32
			if err := binary.Read(chunk.content, binary.LittleEndian, &dims); err != nil {
				return nil, fmt.Errorf("%w: reading SIZE", ErrTruncatedVOXData)
			}
			sizes = append(sizes, dims)

		case chunk.is("XYZI"):
			if len(out.Models) >= len(sizes) {
				return nil, fmt.Errorf("%w: XYZI without SIZE", ErrMalformedVOXChunk)
			}
			model, err := parseXYZI(chunk.content, sizes[len(out.Models)])
			if err != nil {
				return nil, err
			}
			out.Models = append(out.Models, model)

		case chunk.is("RGBA"):
			if err := parseRGBA(chunk.content, &out.Palette); err != nil {
				return nil, err
			}

		case chunk.is("MATT"):
			if err := parseMATT(chunk.content, &out.Palette); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// parseXYZI expands a sparse voxel list into a dense y-up grid. The file
// stores (w, h, d) with d the vertical axis.
func parseXYZI(r *bytes.Reader, size [3]uint32) (VOXModel, error) {
	w, h, d := size[0], size[1], size[2]
	if w == 0 || h == 0 || d == 0 || w > 256 || h > 256 || d > 256 {
		return VOXModel{}, fmt.Errorf("invalid VOX model dimensions: %dx%dx%d", w, h, d)
	}

	model := VOXModel{
		SizeX:   w,
		SizeY:   d,
		SizeZ:   h,
		Indices: make([]uint8, int(w)*int(h)*int(d)),
	}

	var num uint32
	if err := binary.Read(r, binary.LittleEndian, &num); err != nil {
		return VOXModel{}, fmt.Errorf("%w: reading XYZI count", ErrTruncatedVOXData)
	}

	var v [4]uint8
	for i := uint32(0); i < num; i++ {
		if _, err := io.ReadFull(r, v[:]); err != nil {
			return VOXModel{}, fmt.Errorf("%w: reading voxel %d", ErrTruncatedVOXData, i)
		}
		x, fy, fz, idx := uint32(v[0]), uint32(v[1]), uint32(v[2]), v[3]
		if idx == 0 || x >= w || fy >= h || fz >= d {
			continue
		}
		// z-up to y-up: the file's z becomes height.
		model.Indices[x+fz*w+fy*w*d] = idx
	}

	return model, nil
}

// parseRGBA replaces the palette colors. The chunk holds 256 RGBA entries
// for palette indices 1..255; index 0 stays empty.
func parseRGBA(r *bytes.Reader, p *voxel.Palette) error {
	var c [4]uint8
	for i := 1; i < 256; i++ {
		if _, err := io.ReadFull(r, c[:]); err != nil {
			return fmt.Errorf("%w: reading RGBA entry %d", ErrTruncatedVOXData, i)
		}
		p[i] = voxel.PaletteEntry{
			Albedo:    [3]uint8{c[0], c[1], c[2]},
			Alpha:     c[3],
			Roughness: 255,
		}
	}
	p[0] = voxel.PaletteEntry{}
	return nil
}

// MATT material types.
const (
	voxMattDiffuse  = 0
	voxMattMetal    = 1
	voxMattGlass    = 2
	voxMattEmissive = 3
)

// parseMATT applies PBR properties to one palette entry. Property floats
// are present only when their flag bit is set.
func parseMATT(r *bytes.Reader, p *voxel.Palette) error {
	var id, matType uint32
	var weight float32
	var props uint32

	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return fmt.Errorf("%w: reading MATT id", ErrTruncatedVOXData)
	}
	if err := binary.Read(r, binary.LittleEndian, &matType); err != nil {
		return fmt.Errorf("%w: reading MATT type", ErrTruncatedVOXData)
	}
	if err := binary.Read(r, binary.LittleEndian, &weight); err != nil {
		return fmt.Errorf("%w: reading MATT weight", ErrTruncatedVOXData)
	}
	if err := binary.Read(r, binary.LittleEndian, &props); err != nil {
		return fmt.Errorf("%w: reading MATT properties", ErrTruncatedVOXData)
	}
	if id >= 256 {
		return fmt.Errorf("%w: MATT id %d", ErrMalformedVOXChunk, id)
	}

	// Property values in flag-bit order; only roughness feeds the palette.
	var values [7]float32
	for bit := 0; bit < 7; bit++ {
		if props&(1<<bit) == 0 {
			continue
		}
		if err := binary.Read(r, binary.LittleEndian, &values[bit]); err != nil {
			return fmt.Errorf("%w: reading MATT property %d", ErrTruncatedVOXData, bit)
		}
	}
	roughness := values[1]

	entry := p[id]
	entry.Roughness = unormScale(roughness)
	switch matType {
	case voxMattDiffuse:
		entry.Metallic = unormScale(1.0 - weight)
	case voxMattMetal, voxMattGlass:
		entry.Metallic = unormScale(weight)
	case voxMattEmissive:
		entry.Metallic = unormScale(weight)
		entry.Emission = entry.Albedo
	default:
		return nil
	}
	p[id] = entry

	return nil
}

// unormScale converts a [0, 1] float to a u8, clamping out-of-range input.
func unormScale(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255.0)
}

// ParseVOXFile parses a .vox file from disk.
func ParseVOXFile(path string) (*VOX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading VOX file: %w", err)
	}
	return ParseVOX(data)
}

// defaultVOXPalette returns the MagicaVoxel built-in palette, used when a
// file carries no RGBA chunk. Entries are packed 0xAABBGGRR.
func defaultVOXPalette() voxel.Palette {
	var p voxel.Palette
	for i, packed := range voxDefaultColors {
		p[i] = voxel.PaletteEntry{
			Albedo: [3]uint8{
				uint8(packed),
				uint8(packed >> 8),
				uint8(packed >> 16),
			},
			Alpha:     uint8(packed >> 24),
			Roughness: 255,
		}
	}
	p[0] = voxel.PaletteEntry{}
	return p
}

var voxDefaultColors = [256]uint32{
	0x00000000, 0xffffffff, 0xffccffff, 0xff99ffff, 0xff66ffff, 0xff33ffff, 0xff00ffff, 0xffffccff,
	0xffccccff, 0xff99ccff, 0xff66ccff, 0xff33ccff, 0xff00ccff, 0xffff99ff, 0xffcc99ff, 0xff9999ff,
	0xff6699ff, 0xff3399ff, 0xff0099ff, 0xffff66ff, 0xffcc66ff, 0xff9966ff, 0xff6666ff, 0xff3366ff,
	0xff0066ff, 0xffff33ff, 0xffcc33ff, 0xff9933ff, 0xff6633ff, 0xff3333ff, 0xff0033ff, 0xffff00ff,
	0xffcc00ff, 0xff9900ff, 0xff6600ff, 0xff3300ff, 0xff0000ff, 0xffffffcc, 0xffccffcc, 0xff99ffcc,
	0xff66ffcc, 0xff33ffcc, 0xff00ffcc, 0xffffcccc, 0xffcccccc, 0xff99cccc, 0xff66cccc, 0xff33cccc,
	0xff00cccc, 0xffff99cc, 0xffcc99cc, 0xff9999cc, 0xff6699cc, 0xff3399cc, 0xff0099cc, 0xffff66cc,
	0xffcc66cc, 0xff9966cc, 0xff6666cc, 0xff3366cc, 0xff0066cc, 0xffff33cc, 0xffcc33cc, 0xff9933cc,
	0xff6633cc, 0xff3333cc, 0xff0033cc, 0xffff00cc, 0xffcc00cc, 0xff9900cc, 0xff6600cc, 0xff3300cc,
	0xff0000cc, 0xffffff99, 0xffccff99, 0xff99ff99, 0xff66ff99, 0xff33ff99, 0xff00ff99, 0xffffcc99,
	0xffcccc99, 0xff99cc99, 0xff66cc99, 0xff33cc99, 0xff00cc99, 0xffff9999, 0xffcc9999, 0xff999999,
	0xff669999, 0xff339999, 0xff009999, 0xffff6699, 0xffcc6699, 0xff996699, 0xff666699, 0xff336699,
	0xff006699, 0xffff3399, 0xffcc3399, 0xff993399, 0xff663399, 0xff333399, 0xff003399, 0xffff0099,
	0xffcc0099, 0xff990099, 0xff660099, 0xff330099, 0xff000099, 0xffffff66, 0xffccff66, 0xff99ff66,
	0xff66ff66, 0xff33ff66, 0xff00ff66, 0xffffcc66, 0xffcccc66, 0xff99cc66, 0xff66cc66, 0xff33cc66,
	0xff00cc66, 0xffff9966, 0xffcc9966, 0xff999966, 0xff669966, 0xff339966, 0xff009966, 0xffff6666,
	0xffcc6666, 0xff996666, 0xff666666, 0xff336666, 0xff006666, 0xffff3366, 0xffcc3366, 0xff993366,
	0xff663366, 0xff333366, 0xff003366, 0xffff0066, 0xffcc0066, 0xff990066, 0xff660066, 0xff330066,
	0xff000066, 0xffffff33, 0xffccff33, 0xff99ff33, 0xff66ff33, 0xff33ff33, 0xff00ff33, 0xffffcc33,
	0xffcccc33, 0xff99cc33, 0xff66cc33, 0xff33cc33, 0xff00cc33, 0xffff9933, 0xffcc9933, 0xff999933,
	0xff669933, 0xff339933, 0xff009933, 0xffff6633, 0xffcc6633, 0xff996633, 0xff666633, 0xff336633,
	0xff006633, 0xffff3333, 0xffcc3333, 0xff993333, 0xff663333, 0xff333333, 0xff003333, 0xffff0033,
	0xffcc0033, 0xff990033, 0xff660033, 0xff330033, 0xff000033, 0xffffff00, 0xffccff00, 0xff99ff00,
	0xff66ff00, 0xff33ff00, 0xff00ff00, 0xffffcc00, 0xffcccc00, 0xff99cc00, 0xff66cc00, 0xff33cc00,
	0xff00cc00, 0xffff9900, 0xffcc9900, 0xff999900, 0xff669900, 0xff339900, 0xff009900, 0xffff6600,
	0xffcc6600, 0xff996600, 0xff666600, 0xff336600, 0xff006600, 0xffff3300, 0xffcc3300, 0xff993300,
	0xff663300, 0xff333300, 0xff003300, 0xffff0000, 0xffcc0000, 0xff990000, 0xff660000, 0xff330000,
	0xff0000ee, 0xff0000dd, 0xff0000bb, 0xff0000aa, 0xff000088, 0xff000077, 0xff000055, 0xff000044,
	0xff000022, 0xff000011, 0xff00ee00, 0xff00dd00, 0xff00bb00, 0xff00aa00, 0xff008800, 0xff007700,
	0xff005500, 0xff004400, 0xff002200, 0xff001100, 0xffee0000, 0xffdd0000, 0xffbb0000, 0xffaa0000,
	0xff880000, 0xff770000, 0xff550000, 0xff440000, 0xff220000, 0xff110000, 0xffeeeeee, 0xffdddddd,
	0xffbbbbbb, 0xffaaaaaa, 0xff888888, 0xff777777, 0xff555555, 0xff444444, 0xff222222, 0xff111111,
}
