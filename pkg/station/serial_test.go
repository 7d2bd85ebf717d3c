package station

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goaqua/pkg/channel"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "valid line",
			line: "1234567890123,2048,819,1365,4095",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Counts:    channel.Counts{2048, 819, 1365, 4095},
			},
		},
		{
			name: "valid line - zeros",
			line: "1,0,0,0,0",
			want: RawSample{
				Timestamp: time.Unix(0, 1000),
				Counts:    channel.Counts{0, 0, 0, 0},
			},
		},
		{
			name: "valid line - spaces around fields",
			line: "1234567890123, 1, 2, 3, 4",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Counts:    channel.Counts{1, 2, 3, 4},
			},
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1234567890123,2048,1024,100",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1234567890123,2048,1024,100,200,extra",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric timestamp",
			line:    "abc,2048,1024,100,200",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric reading",
			line:    "1234567890123,abc,1024,100,200",
			wantErr: true,
		},
		{
			name:    "invalid - negative reading",
			line:    "1234567890123,-1,1024,100,200",
			wantErr: true,
		},
		{
			name:    "invalid - reading out of range",
			line:    "1234567890123,2048,1024,5000,200",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.Timestamp.UnixNano(), got.Timestamp.UnixNano())
				assert.Equal(t, tt.want.Counts, got.Counts)
			}
		})
	}
}

func TestParseLine_ErrorNamesQuantity(t *testing.T) {
	_, err := parseLine("1,1,2,3,9999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chlorine")
}

func TestReadSamples(t *testing.T) {
	input := strings.Join([]string{
		"1000,1,2,3,4",
		"",
		"garbage",
		"2000,4095,0,10,20",
		"3000,1,2,3",
	}, "\n")

	out := make(chan RawSample, 10)
	readSamples(context.Background(), strings.NewReader(input), out)
	close(out)

	var got []RawSample
	for s := range out {
		got = append(got, s)
	}

	require.Len(t, got, 2)
	assert.Equal(t, channel.Counts{1, 2, 3, 4}, got[0].Counts)
	assert.Equal(t, time.UnixMicro(1000), got[0].Timestamp)
	assert.Equal(t, channel.Counts{4095, 0, 10, 20}, got[1].Counts)
}

func TestReadSamples_DropsWhenFull(t *testing.T) {
	input := "1,1,1,1,1\n2,2,2,2,2\n3,3,3,3,3\n"

	out := make(chan RawSample, 1)
	readSamples(context.Background(), strings.NewReader(input), out)

	require.Len(t, out, 1)
	assert.Equal(t, channel.Counts{1, 1, 1, 1}, (<-out).Counts)
}

func TestReadSamples_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan RawSample, 10)
	readSamples(ctx, strings.NewReader("1,1,1,1,1\n"), out)

	assert.Len(t, out, 0)
}

func TestNew(t *testing.T) {
	dev := New("COM3", 57600, 10)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.port)
	assert.Equal(t, 57600, dev.baudRate)
	assert.Equal(t, 10, dev.bufSize)
	assert.NotNil(t, dev.samples)
	assert.False(t, dev.IsConnected())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("COM3", 0, 0)
	assert.NotNil(t, dev)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestSerial_CloseNotConnected(t *testing.T) {
	dev := New("COM3", 0, 0)
	assert.NoError(t, dev.Close())
}
