package delta

// Create builds a delta that Apply can replay against src to reproduce
// target. The delta is a base-64-number-prefixed stream of literal
// segments ("N:TTTT"), copy commands ("N@M," - copy N bytes from src
// starting at offset M), and a trailing checksum record ("N;").
//
// Create never fails: if src offers no usable matches the delta degrades
// to one literal segment holding the whole of target, which is always a
// valid (if larger) delta.
func Create(src, target []byte) []byte {
	lenSrc, lenOut := len(src), len(target)

	delta := make([]byte, 0, lenOut+64)
	delta = append(delta, EncodeInt(uint32(lenOut))...)
	delta = append(delta, '\n')

	if lenSrc <= windowSize {
		delta = append(delta, EncodeInt(uint32(lenOut))...)
		delta = append(delta, ':')
		delta = append(delta, target...)
		delta = append(delta, EncodeInt(Checksum(target))...)
		delta = append(delta, ';')
		return delta
	}

	nHash := lenSrc / windowSize
	landmark := make([]int32, nHash)
	collide := make([]int32, nHash)
	for i := range landmark {
		landmark[i] = -1
		collide[i] = -1
	}
	for i := 0; i < lenSrc-windowSize; i += windowSize {
		h := initHash(src[i:])
		hv := int(h.value() % uint32(nHash))
		collide[i/windowSize] = landmark[hv]
		landmark[hv] = int32(i / windowSize)
	}

	base := 0
	for base+windowSize < lenOut {
		h := initHash(target[base:])
		i := 0
		bestCnt := 0
		var bestOfst, bestLitsz int

		for {
			hv := int(h.value() % uint32(nHash))
			iBlock := landmark[hv]
			limit := 250
			for iBlock >= 0 && limit > 0 {
				limit--

				iSrc := int(iBlock) * windowSize

				// Match forward from iSrc as far as possible.
				j, x, y := 0, iSrc, base+i
				for x < lenSrc && y < lenOut {
					if src[x] != target[y] {
						break
					}
					j++
					x++
					y++
				}
				j--

				// Match backward from iSrc-1 as far as possible.
				k := 1
				for k < iSrc && k <= i {
					if src[iSrc-k] != target[base+i-k] {
						break
					}
					k++
				}
				k--

				ofst := iSrc - k
				cnt := j + k + 1
				litsz := i - k
				sz := DigitCount(uint32(litsz)) + DigitCount(uint32(cnt)) + DigitCount(uint32(ofst)) + 3
				if cnt >= sz && cnt > bestCnt {
					bestCnt = cnt
					bestOfst = ofst
					bestLitsz = litsz
				}

				iBlock = collide[iBlock]
			}

			if bestCnt > 0 {
				if bestLitsz > 0 {
					delta = append(delta, EncodeInt(uint32(bestLitsz))...)
					delta = append(delta, ':')
					delta = append(delta, target[base:base+bestLitsz]...)
					base += bestLitsz
				}
				base += bestCnt
				delta = append(delta, EncodeInt(uint32(bestCnt))...)
				delta = append(delta, '@')
				delta = append(delta, EncodeInt(uint32(bestOfst))...)
				delta = append(delta, ',')
				bestCnt = 0
				break
			}

			if base+i+windowSize >= lenOut {
				delta = append(delta, EncodeInt(uint32(lenOut-base))...)
				delta = append(delta, ':')
				delta = append(delta, target[base:lenOut]...)
				base = lenOut
				break
			}

			h.next(target[base+i+windowSize])
			i++
		}
	}

	if base < lenOut {
		delta = append(delta, EncodeInt(uint32(lenOut-base))...)
		delta = append(delta, ':')
		delta = append(delta, target[base:lenOut]...)
	}
	delta = append(delta, EncodeInt(Checksum(target))...)
	delta = append(delta, ';')
	return delta
}
