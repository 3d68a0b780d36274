// Package fileutil provides small file helpers shared by the pipeline
// stages: streaming copies and filename sanitization for artifacts.
package fileutil

import (
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName converts an arbitrary media title into a filesystem and
// upload safe filename. Unicode is NFC-normalized so composed and
// decomposed forms of the same title produce the same name.
func SanitizeFileName(name string) string {
	cleaned := norm.NFC.String(strings.TrimSpace(name))
	cleaned = filenameReplacer.Replace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, ". ")
	const maxRunes = 120
	if runes := []rune(cleaned); len(runes) > maxRunes {
		cleaned = strings.TrimRight(string(runes[:maxRunes]), ". ")
	}
	if cleaned == "" {
		return "media"
	}
	return cleaned
}
