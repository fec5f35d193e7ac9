package ppu

import "sort"

const (
	maxLineSprites = 10
	oamEntries     = 40
)

// sprite is one entry of the line's sprite list. line is the row within the
// sprite, oampos the byte offset of its OAM entry.
type sprite struct {
	spx    uint8
	line   uint8
	oampos uint8
	attrib uint8
}

// lineSprites returns the OAM indexes of the sprites on line ly: the first
// ten in OAM order that cover the line, stably sorted by x.
func lineSprites(oam []byte, ly int, large bool) []int {
	h := 8
	if large {
		h = 16
	}
	out := make([]int, 0, maxLineSprites)
	for i := 0; i < oamEntries && len(out) < maxLineSprites; i++ {
		row := ly + 16 - int(oam[i*4])
		if row >= 0 && row < h {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return oam[out[a]*4+1] < oam[out[b]*4+1]
	})
	return out
}

// spriteXs returns the x positions of the sprites on line ly in fetch order.
func (p *PPU) spriteXs(ly int) []int {
	idx := lineSprites(p.mem.OAM[:], ly, p.lcdc&lcdcObj2x != 0)
	xs := make([]int, len(idx))
	for i, n := range idx {
		xs[i] = int(p.mem.OAM[n*4+1])
	}
	return xs
}

// loadSpriteList fills the sprite list for the current line.
func (p *PPU) loadSpriteList() {
	ly := p.ly.ly
	idx := lineSprites(p.mem.OAM[:], ly, p.lcdc&lcdcObj2x != 0)
	for i, n := range idx {
		pos := n * 4
		p.spriteList[i].spx = p.mem.OAM[pos+1]
		p.spriteList[i].line = uint8(ly + 16 - int(p.mem.OAM[pos]))
		p.spriteList[i].oampos = uint8(pos)
		p.spwordList[i] = 0
	}
	p.spriteList[len(idx)].spx = 0xFF
	p.nextSprite = 0
}
