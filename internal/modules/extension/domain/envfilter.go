package domain

// disallowedKeys are environment variables an extension may never override.
// Matching is ASCII case-insensitive.
var disallowedKeys = [...]string{
	// executable resolution
	"PATH",
	"PATHEXT",
	"SystemRoot",
	"windir",
	// dynamic linker
	"LD_LIBRARY_PATH",
	"LD_PRELOAD",
	"LD_AUDIT",
	"LD_DEBUG",
	"LD_BIND_NOW",
	"LD_ASSUME_KERNEL",
	"DYLD_LIBRARY_PATH",
	"DYLD_INSERT_LIBRARIES",
	"DYLD_FRAMEWORK_PATH",
	// interpreters and runtimes
	"PYTHONPATH",
	"PYTHONHOME",
	"NODE_OPTIONS",
	"RUBYOPT",
	"GEM_PATH",
	"GEM_HOME",
	"CLASSPATH",
	"GO111MODULE",
	"GOROOT",
	// windows session and profile
	"APPINIT_DLLS",
	"SESSIONNAME",
	"ComSpec",
	"TEMP",
	"TMP",
	"LOCALAPPDATA",
	"USERPROFILE",
	"HOMEDRIVE",
	"HOMEPATH",
}

// IsDisallowed reports whether name matches a denylisted variable. Only ASCII
// letters are case-folded; all other bytes must match exactly.
func IsDisallowed(name string) bool {
	for _, key := range disallowedKeys {
		if equalFoldASCII(key, name) {
			return true
		}
	}
	return false
}

// DisallowedKeys returns a copy of the denylist in declaration order.
func DisallowedKeys() []string {
	out := make([]string, len(disallowedKeys))
	copy(out, disallowedKeys[:])
	return out
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
