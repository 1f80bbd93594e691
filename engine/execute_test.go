package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"echo a", []string{"echo a"}},
		{"echo a; echo b", []string{"echo a", " echo b"}},
		{"echo a\necho b\n", []string{"echo a", "echo b"}},
		{`echo "a;b"; echo c`, []string{`echo "a;b"`, " echo c"}},
		{"echo \"open\nnext;x", []string{"echo \"open", "next", "x"}},
		{";;", []string{"", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.in))
		})
	}
}
