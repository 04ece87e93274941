package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Indestructible is the hardness sentinel for cells no machine may clear.
const Indestructible = -1

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string  `json:"id"`
	Solid     bool    `json:"solid"`
	Liquid    bool    `json:"liquid,omitempty"`
	Hardness  float64 `json:"hardness"`
	Placeable bool    `json:"placeable,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseBlocks(raw, out)
}

func parseBlocks(raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		if d.Hardness < 0 && d.Hardness != Indestructible {
			return fmt.Errorf("blocks.json: %s: hardness %v", d.ID, d.Hardness)
		}
		out.Defs[d.ID] = d
	}

	// AIR must exist and is palette id 0.
	air, ok := out.Defs["AIR"]
	if !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	if air.Solid || air.Liquid || air.Placeable {
		return fmt.Errorf("blocks.json: AIR must be empty")
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	ids = append([]string{"AIR"}, ids...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// Hardness returns the break hardness of id; ok is false for indestructible
// and unknown materials.
func (c *BlockCatalog) Hardness(id string) (float64, bool) {
	d, ok := c.Defs[id]
	if !ok || d.Hardness == Indestructible {
		return 0, false
	}
	return d.Hardness, true
}

func (c *BlockCatalog) IsSolid(id string) bool  { return c.Defs[id].Solid }
func (c *BlockCatalog) IsLiquid(id string) bool { return c.Defs[id].Liquid }

// AcceptsMaterial reports whether id may be loaded into a builder's inventory.
func (c *BlockCatalog) AcceptsMaterial(id string) bool {
	d, ok := c.Defs[id]
	return ok && d.Solid && d.Placeable
}
