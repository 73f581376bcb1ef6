package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	assert.Contains(t, Lookup("금연"), "금연사업")
	assert.Nil(t, Lookup("없는단어"))
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains []string
		absent   []string
	}{
		{
			name:     "exact term",
			text:     "금연 정책",
			contains: []string{"금연사업", "흡연금지"},
		},
		{
			name:     "term with particle",
			text:     "절차가 어떻게 되나요?",
			contains: []string{"처리절차", "순서"},
		},
		{
			name:     "compound word starting with term",
			text:     "금연구역",
			contains: []string{"금연사업"},
		},
		{
			name:   "no recognised terms",
			text:   "hello world",
			absent: []string{"금연사업"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.text)
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, got, a)
			}
		})
	}
}

func TestExpandDeduplicates(t *testing.T) {
	// 심사 and 분석 both map to 검토.
	got := Expand("심사 분석")
	n := 0
	for _, s := range got {
		if s == "검토" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, got, Expand("심사 분석"))
}

func TestExpandEmpty(t *testing.T) {
	assert.Empty(t, Expand(""))
	assert.Empty(t, Expand("   ?! "))
}
