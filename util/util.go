package util

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// StringListContains returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	if list != nil {
		for i := range list {
			if list[i] == item {
				return true
			}
		}
	}
	return false
}

// ExpandTilde expands a leading "~" in filePath to the current user's
// home directory. Paths without a leading tilde are returned unchanged.
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	if filePath == "~" {
		return usr.HomeDir, nil
	}
	return filepath.Join(usr.HomeDir, filePath[1:]), nil
}

// FileExists returns true if the file or directory at path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CopyFile copies the contents of src to dest, creating or truncating
// dest with the specified mode. Returns the number of bytes copied.
func CopyFile(dest, src string, mode os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return written, err
	}
	return written, out.Close()
}

// LooksSafeToDelete returns true if path is absolute, is at least
// minLength characters long, and has at least minSeparators path
// separators. This keeps us from deleting things like "/" or "/usr".
func LooksSafeToDelete(path string, minLength, minSeparators int) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	return len(path) >= minLength &&
		strings.Count(path, string(os.PathSeparator)) >= minSeparators
}

// ShellJoin quotes each arg as needed and joins them into a string
// suitable for passing to sh -c. Args that are already shell-safe,
// such as "shub://org/app:tag", come through unchanged.
func ShellJoin(args ...string) string {
	return shellquote.Join(args...)
}

// ShellSplit splits a user-supplied argument string the way a posix
// shell would, so we can requote the pieces safely.
func ShellSplit(s string) ([]string, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("Cannot parse arguments '%s': %v", s, err)
	}
	return words, nil
}

// Redact replaces every non-empty secret in s with asterisks. Use this
// before logging command strings that may contain credentials.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "********")
		}
	}
	return s
}
