// Package recipe tokenizes a line-oriented build recipe into a typed
// instruction sequence. Parsing is deliberately forgiving: malformed lines
// are dropped rather than raising, since semantic validation is the graph
// builder's concern.
package recipe

import (
	"bufio"
	"strings"
)

// Kind tags an Instruction's variant.
type Kind int

const (
	KindFrom Kind = iota
	KindWorkdir
	KindCopy
	KindRun
	KindEnv
	KindCmd
	KindGit
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFrom:
		return "FROM"
	case KindWorkdir:
		return "WORKDIR"
	case KindCopy:
		return "COPY"
	case KindRun:
		return "RUN"
	case KindEnv:
		return "ENV"
	case KindCmd:
		return "CMD"
	case KindGit:
		return "GIT"
	default:
		return "OTHER"
	}
}

// Instruction is an immutable tagged variant over the recognized recipe
// keywords. Only the fields relevant to Kind are populated.
type Instruction struct {
	Kind Kind

	ImageRef string // FROM
	Path     string // WORKDIR
	Src      string // COPY, GIT (url)
	Dst      string // COPY, GIT (target-dir)
	Command  string // RUN, CMD
	EnvKey   string // ENV
	EnvValue string // ENV

	Raw string // original line text, always populated
}

// Parse tokenizes text into an ordered Instruction list. Per line: trim
// whitespace; skip if empty or '#'-prefixed; split on whitespace; the first
// token uppercased is the keyword; the remainder of the original line
// (after the keyword) is the argument text. Unknown keywords fall through
// to KindOther carrying the raw line; lines whose keyword is recognized but
// whose arguments are insufficient are dropped entirely.
func Parse(text string) []Instruction {
	var out []Instruction
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		keyword := strings.ToUpper(fields[0])
		argText := strings.TrimSpace(argTextAfterKeyword(line, fields[0]))
		args := fields[1:]

		inst, ok := parseKeyword(keyword, argText, args, line)
		if !ok {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// argTextAfterKeyword returns the original line's content after the first
// token, preserving internal whitespace (unlike strings.Fields, which would
// collapse it).
func argTextAfterKeyword(line, firstToken string) string {
	idx := strings.Index(line, firstToken)
	if idx < 0 {
		return ""
	}
	return line[idx+len(firstToken):]
}

func parseKeyword(keyword, argText string, args []string, raw string) (Instruction, bool) {
	switch keyword {
	case "FROM":
		if len(args) < 1 {
			return Instruction{}, false
		}
		return Instruction{Kind: KindFrom, ImageRef: args[0], Raw: raw}, true

	case "WORKDIR":
		if len(args) < 1 {
			return Instruction{}, false
		}
		return Instruction{Kind: KindWorkdir, Path: args[0], Raw: raw}, true

	case "COPY":
		if len(args) < 2 {
			return Instruction{}, false
		}
		return Instruction{Kind: KindCopy, Src: args[0], Dst: args[1], Raw: raw}, true

	case "RUN":
		if argText == "" {
			return Instruction{}, false
		}
		return Instruction{Kind: KindRun, Command: argText, Raw: raw}, true

	case "ENV":
		if argText == "" {
			return Instruction{}, false
		}
		k, v, ok := splitEnvArg(argText)
		if !ok {
			return Instruction{}, false
		}
		return Instruction{Kind: KindEnv, EnvKey: k, EnvValue: v, Raw: raw}, true

	case "CMD":
		if argText == "" {
			return Instruction{}, false
		}
		return Instruction{Kind: KindCmd, Command: argText, Raw: raw}, true

	case "GIT":
		if len(args) < 1 {
			return Instruction{}, false
		}
		target := "."
		if len(args) >= 2 {
			target = args[1]
		}
		return Instruction{Kind: KindGit, Src: args[0], Dst: target, Raw: raw}, true

	default:
		return Instruction{Kind: KindOther, Raw: raw}, true
	}
}

// splitEnvArg splits argText once on the first space or '=', requiring both
// sides to be non-empty.
func splitEnvArg(argText string) (key, value string, ok bool) {
	idx := strings.IndexAny(argText, " =")
	if idx <= 0 || idx == len(argText)-1 {
		return "", "", false
	}
	key = argText[:idx]
	value = strings.TrimSpace(argText[idx+1:])
	if value == "" {
		return "", "", false
	}
	return key, value, true
}

// Canonical renders the instruction's canonical textual form, the preimage
// segment the key computer feeds into each node's hash.
func (i Instruction) Canonical() string {
	switch i.Kind {
	case KindFrom:
		return "FROM " + i.ImageRef
	case KindWorkdir:
		return "WORKDIR " + i.Path
	case KindCopy:
		return "COPY " + i.Src + " " + i.Dst
	case KindRun:
		return "RUN " + i.Command
	case KindEnv:
		return "ENV " + i.EnvKey + "=" + i.EnvValue
	case KindCmd:
		return "CMD " + i.Command
	case KindGit:
		return "GIT " + i.Src + " " + i.Dst
	default:
		return i.Raw
	}
}
