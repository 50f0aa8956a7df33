package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
)

// echoArgs is an encoder stand-in that writes its argument list to the
// output file: the value after -o (HandBrakeCLI) or the last argument (ffmpeg).
func echoArgs(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "enc")
	script := `#!/bin/sh
out=""
prev=""
for a; do
	if [ "$prev" = "-o" ]; then out="$a"; fi
	prev="$a"
done
[ -n "$out" ] || out="$prev"
echo "$@" > "$out"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func runCompress(t *testing.T, eng Engine, quality int, mode Mode) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.mp4")
	res, err := eng.Compress(context.Background(), "in.mkv", out, quality, mode)
	require.NoError(t, err)
	assert.Positive(t, res.OutputSize)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return string(data)
}

func TestSoftwareEngine_Compress(t *testing.T) {
	eng := NewSoftwareEngine(echoArgs(t), "160k")

	args := runCompress(t, eng, 28, ModeEncode)
	assert.Contains(t, args, "-c:v libx265")
	assert.Contains(t, args, "-crf 28")

	args = runCompress(t, eng, 28, ModeRemux)
	assert.Contains(t, args, "-c copy")
	assert.NotContains(t, args, "-crf")
}

func TestHardwareEngine_CompressUsesBitrateTable(t *testing.T) {
	table := ffmpeg.NewBitrateTable(map[int]int{20: 6000, 30: 1400})
	eng := NewHardwareEngine(NameVideoToolbox, ffmpeg.HWAccelVideoToolbox, echoArgs(t), table, "128k")

	assert.Equal(t, 6000, eng.Bitrate(25))
	args := runCompress(t, eng, 25, ModeEncode)
	assert.Contains(t, args, "-c:v hevc_videotoolbox")
	assert.Contains(t, args, "-b:v 6000k")
	assert.Contains(t, args, "-b:a 128k")
	assert.NotContains(t, args, "-crf")
}

func TestHandBrakeEngine_Compress(t *testing.T) {
	eng := NewHandBrakeEngine(echoArgs(t), "Fast 1080p30")

	args := runCompress(t, eng, 22, ModeEncode)
	assert.Contains(t, args, "-o ")
	assert.Contains(t, args, "--preset Fast 1080p30")
	assert.Contains(t, args, "-q 22")
	assert.Contains(t, args, "--all-audio")

	_, err := eng.Compress(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "x.mp4"), 22, ModeRemux)
	assert.ErrorIs(t, err, ErrStreamCopyUnsupported)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "remux", ModeRemux.String())
	assert.Equal(t, "encode", ModeEncode.String())
}
