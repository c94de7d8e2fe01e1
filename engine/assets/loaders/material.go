package loaders

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

/**
 * @brief A material declared by a Wavefront MTL library.
 */
type Material struct {
	Name string
	/** @brief Ka */
	Ambient [3]float32
	/** @brief Kd */
	Diffuse [3]float32
	/** @brief Ks */
	Specular [3]float32
	/** @brief Ns, the specular exponent. */
	Shininess float32
	/** @brief d, 1 is opaque. */
	Dissolve float32
	/** @brief map_Kd, relative to the assets directory. */
	DiffuseTexture string
	/** @brief map_Bump or bump */
	NormalTexture string
}

/**
 * @brief Parses the content of an MTL file. Unknown statements are ignored.
 */
func ParseMTL(text string) ([]Material, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var materials []Material
	var current *Material

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Fields(line)
		key := fields[0]
		values := fields[1:]

		if key == "newmtl" {
			if len(values) == 0 {
				return nil, fmt.Errorf("mtl line %d: newmtl without a name", lineNumber)
			}
			materials = append(materials, Material{
				Name:     strings.Join(values, " "),
				Dissolve: 1.0,
			})
			current = &materials[len(materials)-1]
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("mtl line %d: `%s` before any newmtl", lineNumber, key)
		}

		var err error
		switch key {
		case "Ka":
			current.Ambient, err = parseColour(values)
		case "Kd":
			current.Diffuse, err = parseColour(values)
		case "Ks":
			current.Specular, err = parseColour(values)
		case "Ns":
			current.Shininess, err = parseScalar(values)
		case "d":
			current.Dissolve, err = parseScalar(values)
		case "Tr":
			var tr float32
			tr, err = parseScalar(values)
			current.Dissolve = 1.0 - tr
		case "map_Kd":
			current.DiffuseTexture, err = parseMapPath(values)
		case "map_Bump", "map_bump", "bump":
			current.NormalTexture, err = parseMapPath(values)
		}
		if err != nil {
			return nil, fmt.Errorf("mtl line %d: %s: %w", lineNumber, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func parseScalar(values []string) (float32, error) {
	if len(values) < 1 {
		return 0, fmt.Errorf("missing value")
	}
	f, err := strconv.ParseFloat(values[0], 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value `%s`", values[0])
	}
	return float32(f), nil
}

func parseColour(values []string) ([3]float32, error) {
	var out [3]float32
	if len(values) < 3 {
		return out, fmt.Errorf("expected 3 values, got %d", len(values))
	}
	for i, v := range values[:3] {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return out, fmt.Errorf("invalid value `%s`", v)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseMapPath skips map options (e.g. `-bm 1.0`) and keeps the file name.
func parseMapPath(values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("missing file name")
	}
	return values[len(values)-1], nil
}
