package ppu

// dmgShades are the four grey levels of the monochrome LCD.
var dmgShades = [4]uint32{0xFFFFFF, 0xAAAAAA, 0x555555, 0x000000}

// palettes holds the palette registers as the CPU sees them: the monochrome
// BGP/OBP0/OBP1 bytes and the CGB colour RAM behind BCPS/BCPD and OCPS/OCPD.
type palettes struct {
	bgp, obp0, obp1 uint8

	bgPal  [64]byte // 8 palettes * 4 colours * 2 bytes, RGB555 little endian
	objPal [64]byte
	bcps   uint8 // bits 0-5 index, bit 7 auto increment
	ocps   uint8
}

func (pl *palettes) reset() {
	*pl = palettes{}
	// White until software writes colours.
	for i := 0; i < 64; i += 2 {
		pl.bgPal[i], pl.bgPal[i+1] = 0xFF, 0x7F
		pl.objPal[i], pl.objPal[i+1] = 0xFF, 0x7F
	}
}

// decodeRGB555 converts a little-endian 15-bit colour to 8 bits per channel.
func decodeRGB555(lo, hi byte) (r, g, b byte) {
	v := uint16(lo) | uint16(hi)<<8
	r5 := byte(v & 0x1F)
	g5 := byte(v >> 5 & 0x1F)
	b5 := byte(v >> 10 & 0x1F)
	r = r5<<3 | r5>>2
	g = g5<<3 | g5>>2
	b = b5<<3 | b5>>2
	return
}

func rgb555(ram *[64]byte, i int) uint32 {
	r, g, b := decodeRGB555(ram[i*2], ram[i*2+1])
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func setDMGPalette(dst []uint32, v uint8) {
	for i := 0; i < 4; i++ {
		dst[i] = dmgShades[v>>(2*i)&3]
	}
}

// refreshPalettes rebuilds the resolved colour tables from the registers.
func (p *PPU) refreshPalettes() {
	if p.cgb {
		for i := 0; i < 32; i++ {
			p.bgPalette[i] = rgb555(&p.bgPal, i)
			p.spPalette[i] = rgb555(&p.objPal, i)
		}
		return
	}
	setDMGPalette(p.bgPalette[:4], p.bgp)
	setDMGPalette(p.spPalette[:4], p.obp0)
	setDMGPalette(p.spPalette[4:8], p.obp1)
}

func (p *PPU) writeBCPD(v uint8) {
	idx := int(p.bcps & 0x3F)
	p.bgPal[idx] = v
	p.bgPalette[idx/2] = rgb555(&p.bgPal, idx/2)
	if p.bcps&0x80 != 0 {
		p.bcps = p.bcps&0x80 | uint8(idx+1)&0x3F
	}
}

func (p *PPU) writeOCPD(v uint8) {
	idx := int(p.ocps & 0x3F)
	p.objPal[idx] = v
	p.spPalette[idx/2] = rgb555(&p.objPal, idx/2)
	if p.ocps&0x80 != 0 {
		p.ocps = p.ocps&0x80 | uint8(idx+1)&0x3F
	}
}

// BGColorRGB returns colour colorIdx of background palette palIdx.
func (p *PPU) BGColorRGB(palIdx, colorIdx byte) (r, g, b byte) {
	pi := int(palIdx&7)*8 + int(colorIdx&3)*2
	return decodeRGB555(p.bgPal[pi], p.bgPal[pi+1])
}

// OBJColorRGB returns colour colorIdx of sprite palette palIdx.
func (p *PPU) OBJColorRGB(palIdx, colorIdx byte) (r, g, b byte) {
	pi := int(palIdx&7)*8 + int(colorIdx&3)*2
	return decodeRGB555(p.objPal[pi], p.objPal[pi+1])
}
