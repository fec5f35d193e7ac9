package ppu

// The predictors replay the state machine's timing without touching it. Each
// takes cycles, the distance from now to the pending continuation, and
// returns the distance from now to the cycle at which the cursor reaches
// targetx.

// noTileNumber never equals a tile number because its low bit is set.
const noTileNumber = 1

func predictNextLine(p *PPU, wds uint8, targetx int) int {
	if p.wx == 166 && !p.cgb && p.xpos < 167 &&
		(p.weMaster || int(p.wy2) == p.ly.ly && p.winEnabled()) {
		wds = winDrawStart
		if p.winEnabled() {
			wds |= winDrawStarted
		}
	}
	cycles := int((p.nextM2Time() - p.now) >> p.ly.shift())
	if p.ly.ly == Height-1 {
		return m2Ly0Predict(p, wds, targetx, cycles)
	}
	return m2LyNon0F0Predict(p, wds, targetx, cycles)
}

// addSpriteCycles charges the sprites from xs[k:] up to maxSpx: six cycles
// each, more for the first sprite of a tile that sits early in the tile.
func addSpriteCycles(xs []int, k, maxSpx, firstTileXpos, prevTileNo, cycles int) (int, int) {
	for ; k < len(xs) && xs[k] <= maxSpx; k++ {
		c := 6
		dist := (xs[k] - firstTileXpos) & 7
		tileNo := (xs[k] - firstTileXpos) &^ 7
		if dist < 5 && tileNo != prevTileNo {
			c = 11 - dist
		}
		prevTileNo = tileNo
		cycles += c
	}
	return k, cycles
}

func tilePredict(p *PPU, xpos, endx, ly, nextSprite int, weMaster bool,
	wds uint8, fno, targetx, cycles int) int {
	if wds&winDrawStart != 0 && p.handleWinDrawStartReq(xpos, &wds) {
		return startWindowDrawPredict(p, xpos, endx, ly, nextSprite, weMaster, wds, 0, targetx, cycles)
	}
	if xpos > targetx {
		return predictNextLine(p, wds, targetx)
	}

	nwx := 0xFF
	cycles += targetx - xpos

	if uint32(int(p.wx)-xpos) < uint32(targetx-xpos) && p.winEnabled() &&
		(weMaster || int(p.wy2) == ly) && wds&winDrawStarted == 0 &&
		(p.cgb || p.wx != 166) {
		nwx = int(p.wx)
		cycles += 6
	}

	if p.objEnabled() || p.cgb {
		xs := p.spriteXs(ly)
		k := nextSprite
		if k < len(xs) {
			spx := xs[k]
			firstTileXpos := endx & 7
			prevTileNo := (xpos - firstTileXpos) &^ 7
			if fno+spx-xpos < 5 && spx <= nwx {
				cycles += 11 - (fno + spx - xpos)
				k++
			}
			if nwx < targetx {
				k, cycles = addSpriteCycles(xs, k, nwx, firstTileXpos, prevTileNo, cycles)
				firstTileXpos = nwx + 1
				prevTileNo = noTileNumber
			}
			_, cycles = addSpriteCycles(xs, k, targetx, firstTileXpos, prevTileNo, cycles)
		}
	}
	return cycles
}

func runEnd(xpos int) int {
	if xpos < 160 {
		return xpos + 8
	}
	return xposEnd
}

func predictTileF0(p *PPU, targetx, cycles int) int {
	return tilePredict(p, p.xpos, runEnd(p.xpos), p.ly.ly, p.nextSprite, p.weMaster,
		p.winDrawState, 0, targetx, cycles)
}

func predictTileFn(fno int) func(*PPU, int, int) int {
	return func(p *PPU, targetx, cycles int) int {
		return tilePredict(p, p.xpos, p.endx, p.ly.ly, p.nextSprite, p.weMaster,
			p.winDrawState, fno, targetx, cycles)
	}
}

func startWindowDrawPredict(p *PPU, xpos, endx, ly, nextSprite int, weMaster bool,
	wds uint8, fno, targetx, cycles int) int {
	if xpos > targetx {
		return predictNextLine(p, wds, targetx)
	}
	cinc := 6 - fno
	if !p.winEnabled() && p.cgb {
		xinc := min(cinc, min(endx, targetx+1)-xpos)
		if (p.objEnabled() || p.cgb) && int(p.spriteList[nextSprite].spx) < xpos+xinc {
			xpos = int(p.spriteList[nextSprite].spx)
		} else {
			cinc = xinc
			xpos += xinc
		}
	}
	cycles += cinc
	if xpos <= targetx {
		return tilePredict(p, xpos, runEnd(xpos), ly, nextSprite, weMaster, wds, 0, targetx, cycles)
	}
	return cycles - 1
}

func predictStartWindowDrawF0(p *PPU, targetx, cycles int) int {
	endx := p.endx
	if p.xpos == p.endx {
		endx = runEnd(p.xpos)
	}
	return startWindowDrawPredict(p, p.xpos, endx, p.ly.ly, p.nextSprite, p.weMaster,
		p.winDrawState, 0, targetx, cycles)
}

func predictStartWindowDrawFn(fno int) func(*PPU, int, int) int {
	return func(p *PPU, targetx, cycles int) int {
		return startWindowDrawPredict(p, p.xpos, p.endx, p.ly.ly, p.nextSprite, p.weMaster,
			p.winDrawState, fno, targetx, cycles)
	}
}

func predictLoadSpritesFn(fno int) func(*PPU, int, int) int {
	return func(p *PPU, targetx, cycles int) int {
		nextSprite := p.nextSprite
		if p.objEnabled() || p.cgb {
			cycles += 6 - fno
			nextSprite++
		}
		return tilePredict(p, p.xpos, p.endx, p.ly.ly, nextSprite, p.weMaster,
			p.winDrawState, 5, targetx, cycles)
	}
}

func m3StartF1Predict(p *PPU, xpos, ly int, weMaster bool, wds uint8, targetx, cycles int) int {
	cycles += min((int(p.scx)-xpos)&7, maxM3StartCycles-xpos) + 1 - b2i(p.cgb)
	return tilePredict(p, 0, 8-int(p.scx&7), ly, 0, weMaster, wds,
		min(int(p.scx&7), 5), targetx, cycles)
}

func m3StartF0Predict(p *PPU, ly int, weMaster bool, wds uint8, targetx, cycles int) int {
	if wds&winDrawStart != 0 && p.winEnabled() {
		wds = winDrawStarted
	} else {
		wds = 0
	}
	return m3StartF1Predict(p, 0, ly, weMaster, wds, targetx, cycles)
}

func predictM3StartF0(p *PPU, targetx, cycles int) int {
	ly := p.ly.ly
	if p.ly.time-p.now < 16 {
		ly++
	}
	return m3StartF0Predict(p, ly, p.weMaster, p.winDrawState, targetx, cycles)
}

func predictM3StartF1(p *PPU, targetx, cycles int) int {
	return m3StartF1Predict(p, p.xpos, p.ly.ly, p.weMaster, p.winDrawState, targetx, cycles)
}

func m2Ly0Predict(p *PPU, wds uint8, targetx, cycles int) int {
	weMaster := p.winEnabled() && p.wy == 0
	return m3StartF0Predict(p, 0, weMaster, wds, targetx, cycles+m3StartLineCycle)
}

func predictM2Ly0F0(p *PPU, targetx, cycles int) int {
	return m2Ly0Predict(p, p.winDrawState, targetx, cycles)
}

func m2LyNon0F1Predict(p *PPU, weMaster bool, wds uint8, targetx, cycles int) int {
	ly := p.ly.ly + 1
	weMaster = weMaster || p.winEnabled() && ly == int(p.wy)
	return m3StartF0Predict(p, ly, weMaster, wds, targetx,
		cycles+cyclesPerLine-weMasterCheckAfterLyInc(p.cgb)+m3StartLineCycle)
}

func predictM2LyNon0F1(p *PPU, targetx, cycles int) int {
	return m2LyNon0F1Predict(p, p.weMaster, p.winDrawState, targetx, cycles)
}

func m2LyNon0F0Predict(p *PPU, wds uint8, targetx, cycles int) int {
	weMaster := p.weMaster || p.winEnabled() && p.ly.ly == int(p.wy)
	return m2LyNon0F1Predict(p, weMaster, wds, targetx,
		cycles+weMasterCheckAfterLyInc(p.cgb)-weMasterCheckPriorToLyInc(p.cgb))
}

func predictM2LyNon0F0(p *PPU, targetx, cycles int) int {
	return m2LyNon0F0Predict(p, p.winDrawState, targetx, cycles)
}
