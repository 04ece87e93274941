package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

const testBlocks = `[
  {"id":"STONE","solid":true,"hardness":1.5,"placeable":true},
  {"id":"AIR","solid":false,"hardness":0},
  {"id":"WATER","solid":false,"liquid":true,"hardness":100},
  {"id":"BEDROCK","solid":true,"hardness":-1},
  {"id":"TORCH","solid":false,"hardness":0,"placeable":true}
]`

func TestLoadBlocksPaletteAndLookups(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(testBlocks), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b := &c.Blocks
	if b.Palette[0] != "AIR" || b.Index["AIR"] != 0 {
		t.Fatalf("AIR must be palette id 0: %v", b.Palette)
	}
	if len(b.Palette) != 5 || b.Palette[1] != "BEDROCK" {
		t.Fatalf("unexpected palette %v", b.Palette)
	}
	if b.PaletteDigest == "" || b.DefsDigest == "" {
		t.Fatalf("missing digests")
	}
	if _, ok := b.Hardness("BEDROCK"); ok {
		t.Fatalf("bedrock must be indestructible")
	}
	if h, ok := b.Hardness("STONE"); !ok || h != 1.5 {
		t.Fatalf("stone hardness %v %v", h, ok)
	}
	if _, ok := b.Hardness("UNOBTAINIUM"); ok {
		t.Fatalf("unknown material must not be breakable")
	}
	if !b.IsLiquid("WATER") || b.IsSolid("WATER") {
		t.Fatalf("water flags wrong")
	}
	if !b.AcceptsMaterial("STONE") || b.AcceptsMaterial("TORCH") || b.AcceptsMaterial("BEDROCK") {
		t.Fatalf("AcceptsMaterial wrong")
	}
}

func TestParseBlocksRejects(t *testing.T) {
	cases := map[string]string{
		"no air":    `[{"id":"STONE","solid":true,"hardness":1}]`,
		"empty id":  `[{"id":"AIR"},{"id":""}]`,
		"duplicate": `[{"id":"AIR"},{"id":"AIR"}]`,
		"hardness":  `[{"id":"AIR"},{"id":"X","hardness":-3}]`,
		"solid air": `[{"id":"AIR","solid":true}]`,
		"syntax":    `[`,
	}
	for name, raw := range cases {
		var out BlockCatalog
		if err := parseBlocks([]byte(raw), &out); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRepoBlocksCatalogLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load configs: %v", err)
	}
	if _, ok := c.Blocks.Defs["STONE"]; !ok {
		t.Fatalf("configs/blocks.json lacks STONE")
	}
}
