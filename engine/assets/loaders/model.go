package loaders

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/orrery/engine/core"
)

/**
 * @brief One drawable part of an OBJ file. Faces are triangulated and every
 * vertex has a single index shared by position, texcoord and normal.
 */
type OBJMesh struct {
	Name string
	// xyz per vertex
	Positions []float32
	// uv per vertex, empty when the file carries none
	Texcoords []float32
	// xyz per vertex, empty when the file carries none
	Normals []float32
	Indices []uint32
	// MaterialName is the last `usemtl` seen before the faces.
	MaterialName string
	// MaterialID indexes OBJ.Materials. It is -1 when the mesh names no
	// material or one the material libraries do not define.
	MaterialID int
}

func (m *OBJMesh) VertexCount() int {
	return len(m.Positions) / 3
}

type OBJ struct {
	Meshes       []OBJMesh
	Materials    []Material
	MaterialLibs []string
}

// MaterialLibraryFunc fetches the text of a material library named by `mtllib`.
type MaterialLibraryFunc func(ctx context.Context, name string) (string, error)

type vertexKey struct {
	v, vt, vn int
}

type objDecoder struct {
	ctx          context.Context
	loadMaterial MaterialLibraryFunc
	out          *OBJ
	line         int

	positions []float32
	texcoords []float32
	normals   []float32

	materialIDs   map[string]int
	objectName    string
	materialName  string
	current       *OBJMesh
	currentLookup map[vertexKey]uint32
	hasTexcoords  bool
	hasNormals    bool
}

/**
 * @brief Parses Wavefront OBJ text. Material libraries are fetched through
 * loadMaterial and parsed as they are referenced. Polygons are fan triangulated.
 *
 * @param ctx Cancels the decoding between lines and material fetches.
 * @param text The OBJ file content.
 * @param loadMaterial Called once per `mtllib` entry. Can be nil.
 * @return The decoded meshes and materials.
 */
func DecodeOBJ(ctx context.Context, text string, loadMaterial MaterialLibraryFunc) (*OBJ, error) {
	dec := &objDecoder{
		ctx:          ctx,
		loadMaterial: loadMaterial,
		out:          &OBJ{},
		materialIDs:  make(map[string]int),
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		dec.line++
		if dec.line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := dec.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	dec.flush()

	// usemtl may precede the mtllib that defines it, resolve names at the end.
	for i := range dec.out.Meshes {
		m := &dec.out.Meshes[i]
		if m.Name == "" {
			m.Name = fmt.Sprintf("mesh_%d", i)
		}
		m.MaterialID = -1
		if id, ok := dec.materialIDs[m.MaterialName]; ok && m.MaterialName != "" {
			m.MaterialID = id
		}
	}
	return dec.out, nil
}

func (dec *objDecoder) formatError(msg string, args ...interface{}) error {
	return fmt.Errorf("obj line %d: %s", dec.line, fmt.Sprintf(msg, args...))
}

// Parses obj file line, dispatching to specific parsers
func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	// Ignore empty lines
	if len(fields) == 0 {
		return nil
	}
	// Ignore comment lines
	if strings.HasPrefix(fields[0], "#") {
		return nil
	}

	switch fields[0] {
	case "v":
		return dec.parseFloats(fields[1:], 3, &dec.positions)
	case "vt":
		return dec.parseFloats(fields[1:], 2, &dec.texcoords)
	case "vn":
		return dec.parseFloats(fields[1:], 3, &dec.normals)
	case "f":
		return dec.parseFace(fields[1:])
	case "o", "g":
		dec.flush()
		dec.objectName = strings.Join(fields[1:], " ")
	case "usemtl":
		if len(fields) < 2 {
			return dec.formatError("usemtl with no name")
		}
		name := strings.Join(fields[1:], " ")
		if name != dec.materialName {
			dec.flush()
			dec.materialName = name
		}
	case "mtllib":
		return dec.parseMaterialLibs(fields[1:])
	default:
		// s, l, p and the other statements do not matter for rendering.
	}
	return nil
}

func (dec *objDecoder) parseFloats(fields []string, count int, dst *[]float32) error {
	if len(fields) < count {
		return dec.formatError("expected %d values, got %d", count, len(fields))
	}
	for _, f := range fields[:count] {
		val, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return dec.formatError("invalid number `%s`", f)
		}
		*dst = append(*dst, float32(val))
	}
	return nil
}

func (dec *objDecoder) parseMaterialLibs(fields []string) error {
	if len(fields) == 0 {
		return dec.formatError("mtllib with no file")
	}
	for _, lib := range fields {
		dec.out.MaterialLibs = append(dec.out.MaterialLibs, lib)
		if dec.loadMaterial == nil {
			continue
		}
		text, err := dec.loadMaterial(dec.ctx, lib)
		if err != nil {
			return err
		}
		materials, err := ParseMTL(text)
		if err != nil {
			return fmt.Errorf("material library `%s`: %w", lib, err)
		}
		for _, m := range materials {
			if _, exists := dec.materialIDs[m.Name]; exists {
				core.LogWarn("material `%s` defined twice, keeping the first one", m.Name)
				continue
			}
			dec.materialIDs[m.Name] = len(dec.out.Materials)
			dec.out.Materials = append(dec.out.Materials, m)
		}
	}
	return nil
}

// resolveIndex turns a 1 based (or negative, relative) OBJ index into a 0 based one.
func (dec *objDecoder) resolveIndex(field string, count int) (int, error) {
	val, err := strconv.Atoi(field)
	if err != nil {
		return 0, dec.formatError("invalid index `%s`", field)
	}
	idx := val - 1
	if val < 0 {
		idx = count + val
	}
	if val == 0 || idx < 0 || idx >= count {
		return 0, dec.formatError("index %d out of range (count=%d)", val, count)
	}
	return idx, nil
}

// parseFace parses a face decription line:
// f v1[/vt1][/vn1] v2[/vt2][/vn2] v3[/vt3][/vn3] ...
func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return dec.formatError("face with less than 3 vertices")
	}
	if dec.current == nil {
		dec.begin()
	}

	corners := make([]uint32, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, "/")
		key := vertexKey{v: -1, vt: -1, vn: -1}

		var err error
		if key.v, err = dec.resolveIndex(parts[0], len(dec.positions)/3); err != nil {
			return err
		}
		if len(parts) > 1 && parts[1] != "" {
			if key.vt, err = dec.resolveIndex(parts[1], len(dec.texcoords)/2); err != nil {
				return err
			}
			dec.hasTexcoords = true
		}
		if len(parts) > 2 && parts[2] != "" {
			if key.vn, err = dec.resolveIndex(parts[2], len(dec.normals)/3); err != nil {
				return err
			}
			dec.hasNormals = true
		}
		corners = append(corners, dec.vertex(key))
	}

	// fan triangulation
	for i := 1; i+1 < len(corners); i++ {
		dec.current.Indices = append(dec.current.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func (dec *objDecoder) vertex(key vertexKey) uint32 {
	if idx, ok := dec.currentLookup[key]; ok {
		return idx
	}
	m := dec.current
	idx := uint32(m.VertexCount())
	m.Positions = append(m.Positions, dec.positions[key.v*3:key.v*3+3]...)
	if key.vt >= 0 {
		m.Texcoords = append(m.Texcoords, dec.texcoords[key.vt*2:key.vt*2+2]...)
	} else {
		m.Texcoords = append(m.Texcoords, 0, 0)
	}
	if key.vn >= 0 {
		m.Normals = append(m.Normals, dec.normals[key.vn*3:key.vn*3+3]...)
	} else {
		m.Normals = append(m.Normals, 0, 0, 0)
	}
	dec.currentLookup[key] = idx
	return idx
}

func (dec *objDecoder) begin() {
	dec.current = &OBJMesh{Name: dec.objectName, MaterialName: dec.materialName, MaterialID: -1}
	dec.currentLookup = make(map[vertexKey]uint32)
	dec.hasTexcoords = false
	dec.hasNormals = false
}

// flush closes the mesh being built, if it has any face.
func (dec *objDecoder) flush() {
	m := dec.current
	dec.current = nil
	dec.currentLookup = nil
	if m == nil || len(m.Indices) == 0 {
		return
	}
	if !dec.hasTexcoords {
		m.Texcoords = nil
	}
	if !dec.hasNormals {
		m.Normals = nil
	}
	dec.out.Meshes = append(dec.out.Meshes, *m)
}
