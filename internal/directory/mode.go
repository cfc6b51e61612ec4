package directory

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const modeMask = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// ParseMode parses an octal permission string such as "0750", "750" or
// "1777" into an os.FileMode, mapping the setuid, setgid and sticky octal
// digits onto their FileMode flags.
func ParseMode(value string) (os.FileMode, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0o")
	if trimmed == "" {
		return 0, fmt.Errorf("mode is empty")
	}

	bits, err := strconv.ParseUint(trimmed, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("mode %q is not an octal number", value)
	}
	if bits > 0o7777 {
		return 0, fmt.Errorf("mode %q exceeds 07777", value)
	}

	mode := os.FileMode(bits) & os.ModePerm
	if bits&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if bits&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if bits&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode, nil
}

// FormatMode renders mode in the four-digit octal form used by chmod.
func FormatMode(mode os.FileMode) string {
	bits := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if mode&os.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if mode&os.ModeSticky != 0 {
		bits |= 0o1000
	}
	return fmt.Sprintf("%04o", bits)
}
