package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Joseda-hg/lazyjournal/internal/model"
)

// TesseractEngine shells out to the tesseract CLI. The CLI reports no
// progress of its own, so progress jumps once the image is staged.
type TesseractEngine struct {
	Command string
}

func (e TesseractEngine) Recognize(ctx context.Context, img model.Image, languages string, progress func(int)) (string, error) {
	command := e.Command
	if command == "" {
		command = "tesseract"
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", command, err)
	}
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image")
	}

	file, err := os.CreateTemp("", "lazyjournal-ocr-*")
	if err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	defer os.Remove(file.Name())
	if _, err := file.Write(img.Data); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("stage image: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	progress(10)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, file.Name(), "stdout", "-l", languages)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
