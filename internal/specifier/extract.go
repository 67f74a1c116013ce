package specifier

import "strings"

// Tool identifies a wrapped package manager.
type Tool string

const (
	Npm  Tool = "npm"
	Npx  Tool = "npx"
	Pnpm Tool = "pnpm"
	Yarn Tool = "yarn"
)

// installVerbs maps each tool to the subcommands that add new packages.
// Bare "npm install" (restoring from a manifest) yields no tokens; manifest
// and lockfile scanning belong to outer tooling.
var installVerbs = map[Tool]map[string]bool{
	Npm:  {"install": true, "i": true, "in": true, "ins": true, "add": true, "exec": true},
	Pnpm: {"add": true, "install": true, "i": true, "dlx": true, "exec": true},
	Yarn: {"add": true, "dlx": true, "create": true},
}

// execVerbs are the install verbs that run a package instead of adding it.
// Only the executed package is a token; everything after it is that
// command's own argv.
var execVerbs = map[Tool]map[string]bool{
	Npm:  {"exec": true},
	Pnpm: {"dlx": true, "exec": true},
	Yarn: {"dlx": true, "create": true},
}

// valueFlags are tool flags that consume the following argument, so that
// argument is never mistaken for a package token.
var valueFlags = map[string]bool{
	"--registry": true, "--prefix": true, "--workspace": true, "-w": true,
	"--loglevel": true, "--cache": true, "--userconfig": true, "-C": true,
	"--package": true, "-p": true, "--cwd": true, "--dir": true,
	"--filter": true, "--reporter": true,
}

// Extract scans the argv destined for the real tool and returns the package
// tokens the invocation would install or execute. The argv is expected to
// already be free of wrapper-owned flags.
func Extract(tool Tool, argv []string) []string {
	if tool == Npx {
		return extractNpx(argv)
	}

	verbs, ok := installVerbs[tool]
	if !ok {
		return nil
	}

	var tokens []string
	seenVerb := false
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			if seenVerb {
				break
			}
			continue
		}
		if strings.HasPrefix(arg, "-") {
			if valueFlags[flagName(arg)] && !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		if !seenVerb {
			if !verbs[arg] {
				return nil
			}
			if execVerbs[tool][arg] {
				return extractNpx(argv[i+1:])
			}
			seenVerb = true
			continue
		}
		tokens = append(tokens, arg)
	}
	return tokens
}

// extractNpx treats the first non-flag argument as the executed package and
// collects any --package/-p values. When --package is given, the first
// positional is only the command being run, not a package; either way
// everything after it is the command's own argv.
func extractNpx(argv []string) []string {
	var tokens []string
	sawPackage := false
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			continue
		}
		if strings.HasPrefix(arg, "-") {
			name := flagName(arg)
			if name == "--package" || name == "-p" {
				sawPackage = true
				if v, ok := flagValue(arg); ok {
					tokens = append(tokens, v)
				} else if i+1 < len(argv) {
					i++
					tokens = append(tokens, argv[i])
				}
				continue
			}
			if valueFlags[name] && !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		if !sawPackage {
			tokens = append(tokens, arg)
		}
		break
	}
	return tokens
}

func flagName(arg string) string {
	if eq := strings.Index(arg, "="); eq >= 0 {
		return arg[:eq]
	}
	return arg
}

func flagValue(arg string) (string, bool) {
	if eq := strings.Index(arg, "="); eq >= 0 {
		return arg[eq+1:], true
	}
	return "", false
}
