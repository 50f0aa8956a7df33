package ffmpeg

import "strconv"

// Flags shared by every MP4 output: fragment-free moov at the front for
// progressive playback.
var mp4OutputArgs = []string{"-movflags", "+faststart"}

// RemuxArgs copies the first video stream and every audio stream into MP4
// without re-encoding. Metadata and chapters are kept; subtitle and data
// streams are dropped since most of them cannot live in MP4.
func RemuxArgs(input, output string) []string {
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-map_metadata", "0",
		"-map_chapters", "0",
		"-sn", "-dn",
		"-c", "copy",
	}
	args = append(args, mp4OutputArgs...)
	return append(args, output)
}

// SoftwareArgs encodes with libx265 at the given CRF.
func SoftwareArgs(input, output string, crf int, audioBitrate string) []string {
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-map_metadata", "0",
		"-c:v", Encoders[HWAccelNone].Encoder,
		"-crf", strconv.Itoa(crf),
		"-preset", "medium",
		"-tag:v", "hvc1",
		"-c:a", "aac",
		"-b:a", audioBitrate,
	}
	args = append(args, mp4OutputArgs...)
	return append(args, output)
}

// HardwareArgs encodes with a hardware HEVC encoder at a fixed bitrate.
func HardwareArgs(accel HWAccel, input, output string, kbps int, audioBitrate string) []string {
	args := []string{"-hide_banner", "-y"}
	args = append(args, hwaccelInputArgs(accel)...)
	args = append(args,
		"-i", input,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-map_metadata", "0",
		"-c:v", Encoders[accel].Encoder,
	)
	args = append(args, hwaccelEncodeArgs(accel)...)
	rate := strconv.Itoa(kbps) + "k"
	args = append(args,
		"-b:v", rate,
		"-maxrate", strconv.Itoa(kbps*3/2)+"k",
		"-bufsize", strconv.Itoa(kbps*2)+"k",
		"-tag:v", "hvc1",
		"-pix_fmt", "yuv420p",
		"-g", "48",
		"-c:a", "aac",
		"-b:a", audioBitrate,
	)
	args = append(args, mp4OutputArgs...)
	return append(args, output)
}

// HandBrakeArgs runs HandBrakeCLI with a preset and a constant quality value.
func HandBrakeArgs(input, output, preset string, quality int) []string {
	return []string{
		"-i", input,
		"-o", output,
		"--preset", preset,
		"--format", "av_mp4",
		"-q", strconv.Itoa(quality),
		"--all-audio",
		"--markers",
		"--optimize",
	}
}

func hwaccelInputArgs(accel HWAccel) []string {
	switch accel {
	case HWAccelVideoToolbox:
		return []string{"-hwaccel", "videotoolbox"}
	case HWAccelNVENC:
		return []string{"-hwaccel", "cuda"}
	}
	return nil
}

func hwaccelEncodeArgs(accel HWAccel) []string {
	switch accel {
	case HWAccelNVENC:
		return []string{"-preset", "p4", "-tune", "hq", "-rc", "vbr"}
	case HWAccelVideoToolbox:
		return []string{"-allow_sw", "1"}
	}
	return nil
}
