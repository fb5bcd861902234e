package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"already canonical", "1.2mm rr electrical case", "1.2mm rr electrical case"},
		{"measurement glued", "1.2mm", "1.2mm"},
		{"measurement spaced", "1.2 mm", "1.2 mm"},
		{"collapse spaces", "a    b", "a b"},
		{"trim", "  glass  ", "glass"},
		{"number words", "zero one one", "0 1 1"},
		{"number words mixed case", "Twenty TWO Seven", "20 2 7"},
		{"number word inside token untouched", "someone", "someone"},
		{"punctuation deleted not spaced", "R-R", "rr"},
		{"period kept", "R.R", "r.r"},
		{"punctuation leaves gap collapsed", "a - b", "a b"},
		{"tabs and newlines", "mcb\tswitch\ngear", "mcb switch gear"},
		{"non ascii stripped", "café crème", "caf crme"},
		{"number word behind punctuation", "one, two!", "1 2"},
		{"code", "DM0000011", "dm0000011"},
		{"amperage", "1600A TP ACB Draw Out Type", "1600a tp acb draw out type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeOutputAlphabet(t *testing.T) {
	inputs := []string{
		"Hello, World!", "  MuuchStac   Growth Pure ", "10 A Single-Pole MCB (Switch) Gear",
		"ünïcödé spaces here", "..., ;; --", "Ten/Eleven",
	}
	for _, in := range inputs {
		out := Normalize(in)
		for _, r := range out {
			assert.True(t, keep(r), "Normalize(%q) = %q contains %q", in, out, r)
		}
		assert.Equal(t, strings.TrimSpace(out), out)
		assert.NotContains(t, out, "  ")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "   ", "zero one one", "1.2mm RR Electrical Case", "one,two", "t-w-o",
		"Seven.", "MuuchStac Growth Pure", "a    b", "ÉLODIE twenty-one", "10 mm tempered glass",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	inputs := []string{"RR", "rr", "Rr", "MuuchStac Growth Pure", "Zero One", "dm0000011"}
	for _, in := range inputs {
		assert.Equal(t, Normalize(in), Normalize(strings.ToUpper(in)), "input %q", in)
		assert.Equal(t, Normalize(in), Normalize(strings.ToLower(in)), "input %q", in)
	}
}

func TestNumberWord(t *testing.T) {
	d, ok := NumberWord("Nineteen")
	assert.True(t, ok)
	assert.Equal(t, "19", d)

	_, ok = NumberWord("twentyone")
	assert.False(t, ok)

	_, ok = NumberWord("hundred")
	assert.False(t, ok)
}

func TestNormalizeFold(t *testing.T) {
	assert.Equal(t, "cafe creme", NormalizeFold("Café Crème"))
	assert.Equal(t, "elodie 2", NormalizeFold("Élodie two"))
	assert.Equal(t, "", NormalizeFold(""))
}

func TestGet(t *testing.T) {
	tests := []struct {
		mode, input, want string
	}{
		{ModeSpoken, "Café", "caf"},
		{ModeSpokenFold, "Café", "cafe"},
		{"", "Café", "caf"},
		{"unknown_mode", "Café", "caf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Get(tt.mode)(tt.input), "mode %q", tt.mode)
	}
}

func TestWords(t *testing.T) {
	assert.Nil(t, Words(""))
	assert.Equal(t, []string{"rr", "electrical"}, Words("rr electrical"))
	assert.Equal(t, []string{"1.2"}, Words("1.2"))
}
