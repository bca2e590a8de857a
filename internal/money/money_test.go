package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "0.10", want: 10},
		{in: "1", want: 100},
		{in: "2.5", want: 250},
		{in: "2.50", want: 250},
		{in: "+1.00", want: 100},
		{in: "-3.25", want: -325},
		{in: ".75", want: 75},
		{in: "", wantErr: true},
		{in: "-", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.34", FormatCents(1234))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "-1.50", FormatCents(-150))
}
