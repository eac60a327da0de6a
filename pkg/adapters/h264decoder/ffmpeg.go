package h264decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"runtime"
)

// findFFmpeg searches for ffmpeg in PATH and common locations.
// If customPath is set, it uses that path instead.
func findFFmpeg(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrFFmpegNotFound
}

// Available reports whether an ffmpeg binary can be found.
func Available(customPath string) bool {
	_, err := findFFmpeg(customPath)
	return err == nil
}

type ffmpegRunner struct {
	path string
}

// decodePicture writes stream to a temporary file, lets ffmpeg decode it and
// keeps only the picture at display position rank.
func (f *ffmpegRunner) decodePicture(stream []byte, rank int) (image.Image, error) {
	if len(stream) == 0 {
		return nil, ErrDecodeFailed
	}

	inputFile, err := os.CreateTemp("", "h264gop_*.h264")
	if err != nil {
		return nil, fmt.Errorf("create input temp file: %w", err)
	}
	inputPath := inputFile.Name()
	defer os.Remove(inputPath)

	if _, err := inputFile.Write(stream); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("write stream: %w", err)
	}
	inputFile.Close()

	outputFile, err := os.CreateTemp("", "h264frame_*.png")
	if err != nil {
		return nil, fmt.Errorf("create output temp file: %w", err)
	}
	outputPath := outputFile.Name()
	outputFile.Close()
	defer os.Remove(outputPath)

	var stderr bytes.Buffer
	cmd := exec.Command(f.path,
		"-y",
		"-loglevel", "error",
		"-f", "h264",
		"-i", inputPath,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, rank),
		"-vsync", "passthrough",
		"-frames:v", "1",
		"-f", "image2",
		outputPath,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrDecodeFailed, err, stderr.String())
	}

	// No picture at that rank yet.
	if st, err := os.Stat(outputPath); err != nil || st.Size() == 0 {
		return nil, nil
	}

	imgFile, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("open decoded image: %w", err)
	}
	defer imgFile.Close()

	img, err := png.Decode(imgFile)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}
