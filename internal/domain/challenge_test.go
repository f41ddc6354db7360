package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "rot13", NormalizeAnswer("  ROT13 "))
	assert.Equal(t, "two words", NormalizeAnswer("Two Words"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestCheckAnswer(t *testing.T) {
	c := &Challenge{Solution: "Caesar Cipher"}

	assert.True(t, c.CheckAnswer("caesar cipher"))
	assert.True(t, c.CheckAnswer("  CAESAR CIPHER  "))
	assert.False(t, c.CheckAnswer("caesarcipher"))
	assert.False(t, c.CheckAnswer(""))
}

func TestRoundPoints(t *testing.T) {
	var rp RoundPoints
	rp.Add(Round1, 10)
	rp.Add(Round2, 5)
	rp.Add(Round2, 5)

	assert.Equal(t, 10, rp.Round1)
	assert.Equal(t, 10, rp.Round2)
	assert.Equal(t, 0, rp.Round3)
	assert.Equal(t, 20, rp.Total())
}

func TestRoundNext(t *testing.T) {
	assert.Equal(t, Round2, Round1.Next())
	assert.Equal(t, Round3, Round2.Next())
	assert.Equal(t, Round3, Round3.Next())
}
