package index

import "unicode/utf8"

// RuneOffset converts a byte offset in text to a rune offset.
func RuneOffset(text string, byteOff int) int {
	if byteOff > len(text) {
		byteOff = len(text)
	}
	return utf8.RuneCountInString(text[:byteOff])
}

// Window returns the [start, end) rune range of length runes centred on the
// match [matchStart, matchEnd), truncated to [0, total).
func Window(total, matchStart, matchEnd, length int) (start, end int) {
	center := matchStart + (matchEnd-matchStart)/2
	start = center - length/2
	end = start + length
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}
	return start, end
}

// Slice returns runes [start, end) of runes as a string.
func Slice(runes []rune, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// Excerpt cuts a length-rune window of text centred on the byte range
// [byteStart, byteEnd).
func Excerpt(text string, byteStart, byteEnd, length int) string {
	runes := []rune(text)
	s, e := Window(len(runes), RuneOffset(text, byteStart), RuneOffset(text, byteEnd), length)
	return Slice(runes, s, e)
}
